package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
	"github.com/noah-isme/lms-admin-api/internal/service"
)

type stubContentRepo struct {
	contents map[string]*models.Content
}

func newStubContentRepo(contents ...*models.Content) *stubContentRepo {
	repo := &stubContentRepo{contents: make(map[string]*models.Content)}
	for _, c := range contents {
		copy := *c
		repo.contents[c.ID] = &copy
	}
	return repo
}

func (s *stubContentRepo) ListByCourseID(ctx context.Context, courseID string, spec query.Spec) (*query.Result[models.Content], error) {
	data := make([]models.Content, 0)
	for _, c := range s.contents {
		if c.CourseID == courseID {
			data = append(data, *c)
		}
	}
	return &query.Result[models.Content]{Data: data, Total: len(data), Page: spec.Page, Limit: spec.Limit}, nil
}

func (s *stubContentRepo) FindByCourseIDAndID(ctx context.Context, courseID, id string) (*models.Content, error) {
	if content, ok := s.contents[id]; ok && content.CourseID == courseID {
		copy := *content
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubContentRepo) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = "generated-id"
	}
	copy := *content
	s.contents[content.ID] = &copy
	return nil
}

func (s *stubContentRepo) Update(ctx context.Context, content *models.Content) error {
	copy := *content
	s.contents[content.ID] = &copy
	return nil
}

func (s *stubContentRepo) Delete(ctx context.Context, courseID, id string) error {
	delete(s.contents, id)
	return nil
}

func buildContentRouter(repo *stubContentRepo, courses *stubCourseRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewContentService(repo, courses, nil, nil)
	h := NewContentHandler(svc)

	router := gin.New()
	router.GET("/courses/:id/contents", h.List)
	router.POST("/courses/:id/contents", h.Create)
	router.GET("/courses/:id/contents/:contentId", h.Get)
	router.PUT("/courses/:id/contents/:contentId", h.Update)
	router.DELETE("/courses/:id/contents/:contentId", h.Delete)
	return router
}

func TestContentCreateUnderMissingCourse(t *testing.T) {
	router := buildContentRouter(newStubContentRepo(), newStubCourseRepo())

	payload := bytes.NewBufferString(`{"name":"Week 1","description":"syllabus"}`)
	req, _ := http.NewRequest(http.MethodPost, "/courses/ghost/contents", payload)
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "course not found")
}

func TestContentGetCrossCourse404(t *testing.T) {
	courses := newStubCourseRepo(&models.Course{ID: "c1"}, &models.Course{ID: "c2"})
	repo := newStubContentRepo(&models.Content{ID: "ct1", CourseID: "c1", Name: "Week 1"})
	router := buildContentRouter(repo, courses)

	req, _ := http.NewRequest(http.MethodGet, "/courses/c2/contents/ct1", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestContentListScoped(t *testing.T) {
	courses := newStubCourseRepo(&models.Course{ID: "c1"})
	repo := newStubContentRepo(
		&models.Content{ID: "ct1", CourseID: "c1"},
		&models.Content{ID: "ct2", CourseID: "other"},
	)
	router := buildContentRouter(repo, courses)

	req, _ := http.NewRequest(http.MethodGet, "/courses/c1/contents", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total":1`)
}
