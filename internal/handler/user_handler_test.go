package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
	"github.com/noah-isme/lms-admin-api/internal/service"
)

type stubUserRepo struct {
	users    map[string]*models.User
	lastSpec query.Spec
}

func newStubUserRepo(users ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		copy := *u
		repo.users[u.ID] = &copy
	}
	return repo
}

func (s *stubUserRepo) List(ctx context.Context, spec query.Spec) (*query.Result[models.User], error) {
	s.lastSpec = spec
	data := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		data = append(data, *u)
	}
	return &query.Result[models.User]{Data: data, Total: len(data), Page: spec.Page, Limit: spec.Limit}, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "generated-id"
	}
	copy := *user
	s.users[user.ID] = &copy
	return nil
}

func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error {
	copy := *user
	s.users[user.ID] = &copy
	return nil
}

func (s *stubUserRepo) SetRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	return nil
}

func (s *stubUserRepo) Delete(ctx context.Context, id string) error {
	delete(s.users, id)
	return nil
}

func buildUserRouter(repo *stubUserRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewUserService(repo, nil, nil)
	h := NewUserHandler(svc)

	router := gin.New()
	router.GET("/users", h.List)
	router.POST("/users", h.Create)
	router.GET("/users/:id", h.Get)
	router.PUT("/users/:id", h.Update)
	router.DELETE("/users/:id", h.Delete)
	return router
}

func TestUserListAppliesDefaultsAndFilters(t *testing.T) {
	repo := newStubUserRepo(&models.User{ID: "u1", Username: "annlee", Role: models.RoleAdmin})
	router := buildUserRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/users?role=admin&username=", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, repo.lastSpec.Page)
	assert.Equal(t, 10, repo.lastSpec.Limit)
	assert.Equal(t, "admin", repo.lastSpec.Filters["role"])
	// Present-but-empty filters are kept.
	value, ok := repo.lastSpec.Filters["username"]
	assert.True(t, ok)
	assert.Empty(t, value)
}

func TestUserPasswordNeverSerialized(t *testing.T) {
	repo := newStubUserRepo(&models.User{ID: "u1", Username: "annlee", PasswordHash: "secret-hash"})
	router := buildUserRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/users/u1", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "secret-hash")
}

func TestUserCreateConflict(t *testing.T) {
	repo := newStubUserRepo(&models.User{ID: "u1", Username: "annlee", Role: models.RoleUser})
	router := buildUserRouter(repo)

	payload := bytes.NewBufferString(`{"firstName":"Ann","lastName":"Lee","username":"annlee","password":"secret-pass","role":"user"}`)
	req, _ := http.NewRequest(http.MethodPost, "/users", payload)
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "CONFLICT")
}

func TestUserCreateSuccess(t *testing.T) {
	router := buildUserRouter(newStubUserRepo())

	payload := bytes.NewBufferString(`{"firstName":"Ann","lastName":"Lee","username":"annlee","password":"secret-pass","role":"editor","isActive":true}`)
	req, _ := http.NewRequest(http.MethodPost, "/users", payload)
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var envelope struct {
		Data models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "annlee", envelope.Data.Username)
	assert.Equal(t, models.RoleEditor, envelope.Data.Role)
}

func TestUserDeleteReturns204(t *testing.T) {
	repo := newStubUserRepo(&models.User{ID: "u1", Username: "annlee"})
	router := buildUserRouter(repo)

	req, _ := http.NewRequest(http.MethodDelete, "/users/u1", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, repo.users)
}
