package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
	"github.com/noah-isme/lms-admin-api/internal/service"
)

type stubCourseRepo struct {
	courses map[string]*models.Course
	putURLs map[string]string
}

func newStubCourseRepo(courses ...*models.Course) *stubCourseRepo {
	repo := &stubCourseRepo{courses: make(map[string]*models.Course), putURLs: make(map[string]string)}
	for _, c := range courses {
		copy := *c
		repo.courses[c.ID] = &copy
	}
	return repo
}

func (s *stubCourseRepo) List(ctx context.Context, spec query.Spec) (*query.Result[models.Course], error) {
	data := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		data = append(data, *c)
	}
	return &query.Result[models.Course]{Data: data, Total: len(data), Page: spec.Page, Limit: spec.Limit}, nil
}

func (s *stubCourseRepo) ListAll(ctx context.Context) ([]models.Course, error) {
	data := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		data = append(data, *c)
	}
	return data, nil
}

func (s *stubCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := s.courses[id]; ok {
		copy := *course
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "generated-id"
	}
	course.DateCreated = time.Now().UTC()
	copy := *course
	s.courses[course.ID] = &copy
	return nil
}

func (s *stubCourseRepo) Update(ctx context.Context, course *models.Course) error {
	copy := *course
	s.courses[course.ID] = &copy
	return nil
}

func (s *stubCourseRepo) AssignImageKey(ctx context.Context, id, fileName string) error {
	if course, ok := s.courses[id]; ok {
		course.FileName = &fileName
		course.ImgURL = nil
	}
	return nil
}

func (s *stubCourseRepo) SetImageURL(ctx context.Context, id, url string) error {
	s.putURLs[id] = url
	if course, ok := s.courses[id]; ok {
		course.ImgURL = &url
	}
	return nil
}

func (s *stubCourseRepo) Delete(ctx context.Context, id string) error {
	delete(s.courses, id)
	return nil
}

type stubStore struct {
	putErr    error
	signedURL string
}

func (s *stubStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	return s.putErr
}

func (s *stubStore) SignedURL(ctx context.Context, key string) (string, error) {
	return s.signedURL, nil
}

func buildCourseRouter(repo *stubCourseRepo, store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewCourseService(repo, store, nil, nil, nil, nil)
	h := NewCourseHandler(svc)

	router := gin.New()
	router.GET("/courses", h.List)
	router.POST("/courses", h.Create)
	router.GET("/courses/export", h.Export)
	router.GET("/courses/:id", h.Get)
	router.PUT("/courses/:id", h.Update)
	router.DELETE("/courses/:id", h.Delete)
	router.POST("/courses/:id/image", h.UploadImage)
	router.POST("/courses/:id/image-url", h.IssueImageURL)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCourseListEnvelope(t *testing.T) {
	repo := newStubCourseRepo(&models.Course{ID: "c1", Name: "Go Basics"})
	router := buildCourseRouter(repo, &stubStore{})

	req, _ := http.NewRequest(http.MethodGet, "/courses", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Data       []models.Course    `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 1, body.Pagination.Page)
	assert.Equal(t, 10, body.Pagination.Limit)
	assert.Equal(t, 1, body.Pagination.Total)
	assert.Len(t, body.Data, 1)
}

func TestCourseListRejectsNonPositivePaging(t *testing.T) {
	router := buildCourseRouter(newStubCourseRepo(), &stubStore{})

	for _, target := range []string{"/courses?page=0", "/courses?limit=-1", "/courses?page=abc"} {
		req, _ := http.NewRequest(http.MethodGet, target, nil)
		resp := performRequest(router, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code, "target %s", target)
		assert.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
	}
}

func TestCourseCreateReturns201(t *testing.T) {
	router := buildCourseRouter(newStubCourseRepo(), &stubStore{})

	payload := bytes.NewBufferString(`{"name":"Go Basics","description":"intro"}`)
	req, _ := http.NewRequest(http.MethodPost, "/courses", payload)
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"name":"Go Basics"`)
}

func TestCourseGetMissingReturns404(t *testing.T) {
	router := buildCourseRouter(newStubCourseRepo(), &stubStore{})

	req, _ := http.NewRequest(http.MethodGet, "/courses/ghost", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "NOT_FOUND")
}

func multipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCourseUploadImage(t *testing.T) {
	repo := newStubCourseRepo(&models.Course{ID: "c1", Name: "Go Basics"})
	router := buildCourseRouter(repo, &stubStore{})

	body, contentType := multipartImage(t, "image", "cover.png", []byte("png-bytes"))
	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/image", body)
	req.Header.Set("Content-Type", contentType)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data models.Course `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.FileName)
	assert.Contains(t, *envelope.Data.FileName, "c1-")
	assert.Contains(t, *envelope.Data.FileName, "cover.png")
	assert.Nil(t, envelope.Data.ImgURL)
}

func TestCourseUploadImageMissingFile(t *testing.T) {
	router := buildCourseRouter(newStubCourseRepo(&models.Course{ID: "c1"}), &stubStore{})

	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/image", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCourseUploadImageStorageFailure(t *testing.T) {
	repo := newStubCourseRepo(&models.Course{ID: "c1"})
	router := buildCourseRouter(repo, &stubStore{putErr: errors.New("bucket down")})

	body, contentType := multipartImage(t, "image", "cover.png", []byte("png-bytes"))
	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/image", body)
	req.Header.Set("Content-Type", contentType)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "UPSTREAM_STORAGE")
}

func TestCourseIssueImageURLPreconditionFailed(t *testing.T) {
	router := buildCourseRouter(newStubCourseRepo(&models.Course{ID: "c1"}), &stubStore{signedURL: "https://x"})

	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/image-url", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusPreconditionFailed, resp.Code)
	assert.Contains(t, resp.Body.String(), "PRECONDITION_FAILED")
}

func TestCourseIssueImageURLSuccess(t *testing.T) {
	key := "c1-1700000000000-cover.png"
	repo := newStubCourseRepo(&models.Course{ID: "c1", FileName: &key})
	router := buildCourseRouter(repo, &stubStore{signedURL: "https://signed.example/x"})

	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/image-url", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "https://signed.example/x")
	assert.Equal(t, "https://signed.example/x", repo.putURLs["c1"])
}

func TestCourseExportCSVDownload(t *testing.T) {
	repo := newStubCourseRepo(&models.Course{ID: "c1", Name: "Go Basics", Description: "intro"})
	router := buildCourseRouter(repo, &stubStore{})

	req, _ := http.NewRequest(http.MethodGet, "/courses/export?format=csv", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Body.String(), "Go Basics")
}
