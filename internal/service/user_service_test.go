package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.User
	listResult  *query.Result[models.User]
	listErr     error
	findByIDErr error
}

func (m *mockUserRepo) List(ctx context.Context, spec query.Spec) (*query.Result[models.User], error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if m.listResult != nil {
		return m.listResult, nil
	}
	return &query.Result[models.User]{Data: []models.User{}, Page: spec.Page, Limit: spec.Limit}, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	if user.ID == "" {
		user.ID = "generated-id"
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) SetRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	if user, ok := m.users[id]; ok {
		user.RefreshTokenHash = hash
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	delete(m.users, id)
	return nil
}

func seedUser() *mockUserRepo {
	hash, _ := bcrypt.GenerateFromPassword([]byte("original"), bcrypt.DefaultCost)
	return &mockUserRepo{users: map[string]*models.User{
		"u1": {
			ID:           "u1",
			FirstName:    "Ann",
			LastName:     "Lee",
			Username:     "annlee",
			PasswordHash: string(hash),
			Role:         models.RoleEditor,
			IsActive:     true,
		},
	}}
}

func TestUserCreateHashesPassword(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		FirstName: "Ann",
		LastName:  "Lee",
		Username:  "annlee",
		Password:  "secret-pass",
		Role:      models.RoleAdmin,
		IsActive:  true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "secret-pass", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-pass")))
}

func TestUserCreateDuplicateUsernameConflicts(t *testing.T) {
	repo := seedUser()
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		FirstName: "Other",
		LastName:  "Person",
		Username:  "annlee",
		Password:  "secret-pass",
		Role:      models.RoleUser,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.users, 1)
}

func TestUserCreateInvalidRoleRejected(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		FirstName: "Ann",
		LastName:  "Lee",
		Username:  "annlee",
		Password:  "secret-pass",
		Role:      "superuser",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateSameUsernameIsNoop(t *testing.T) {
	repo := seedUser()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		FirstName: "Anna",
		LastName:  "Lee",
		Username:  "annlee",
		Role:      models.RoleEditor,
	})
	require.NoError(t, err)
	assert.Equal(t, "Anna", user.FirstName)
	assert.Equal(t, "annlee", user.Username)
}

func TestUserUpdateTakenUsernameConflicts(t *testing.T) {
	repo := seedUser()
	repo.users["u2"] = &models.User{ID: "u2", Username: "taken", Role: models.RoleUser}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		FirstName: "Ann",
		LastName:  "Lee",
		Username:  "taken",
		Role:      models.RoleEditor,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateWithoutPasswordKeepsHash(t *testing.T) {
	repo := seedUser()
	before := repo.users["u1"].PasswordHash
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		FirstName: "Ann",
		LastName:  "Lee",
		Username:  "annlee",
		Role:      models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, before, user.PasswordHash)

	user, err = svc.Update(context.Background(), "u1", UpdateUserRequest{
		FirstName: "Ann",
		LastName:  "Lee",
		Username:  "annlee",
		Password:  "fresh-pass",
		Role:      models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.NotEqual(t, before, user.PasswordHash)
}

func TestUserSetRefreshTokenStoresHash(t *testing.T) {
	repo := seedUser()
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.SetRefreshToken(context.Background(), "u1", "refresh-token"))
	stored := repo.users["u1"].RefreshTokenHash
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored), []byte("refresh-token")))

	require.NoError(t, svc.SetRefreshToken(context.Background(), "u1", ""))
	assert.Nil(t, repo.users["u1"].RefreshTokenHash)
}

func TestUserDeleteMissingIsNotFound(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
