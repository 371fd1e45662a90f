package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/export"
)

const courseListCachePattern = "courses:list:*"

type courseRepository interface {
	List(ctx context.Context, spec query.Spec) (*query.Result[models.Course], error)
	ListAll(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	AssignImageKey(ctx context.Context, id, fileName string) error
	SetImageURL(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

// ObjectStore is the storage backend for course images. Both the S3 and the
// local filesystem drivers satisfy it.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	SignedURL(ctx context.Context, key string) (string, error)
}

// CourseRequest is the payload for creating and updating courses.
type CourseRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// CourseService handles course management and the image attachment workflow.
type CourseService struct {
	repo      courseRepository
	store     ObjectStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	uploadMu sync.Mutex
	uploads  map[string]*sync.Mutex
}

// NewCourseService creates an instance of CourseService.
func NewCourseService(repo courseRepository, store ObjectStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{
		repo:      repo,
		store:     store,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		uploads:   make(map[string]*sync.Mutex),
	}
}

// courseLock returns the mutex serialising image uploads for one course.
func (s *CourseService) courseLock(id string) *sync.Mutex {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	mu, ok := s.uploads[id]
	if !ok {
		mu = &sync.Mutex{}
		s.uploads[id] = mu
	}
	return mu
}

func listCacheKey(spec query.Spec) string {
	fields := make([]string, 0, len(spec.Filters))
	for field, value := range spec.Filters {
		fields = append(fields, field+"="+value)
	}
	sort.Strings(fields)
	return fmt.Sprintf("courses:list:p=%d:l=%d:ob=%s:od=%s:%s",
		spec.Page, spec.Limit, spec.OrderBy, spec.Direction(), strings.Join(fields, ":"))
}

// List returns a page of courses. Results are served from cache when the
// list cache is enabled.
func (s *CourseService) List(ctx context.Context, spec query.Spec) (*query.Result[models.Course], error) {
	spec.Normalize(query.CourseDefaults)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	key := listCacheKey(spec)
	var cached query.Result[models.Course]
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	result, err := s.repo.List(ctx, spec)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	if err := s.cache.Set(ctx, key, result, 0); err != nil {
		s.logger.Debug("course list cache write skipped", zap.Error(err))
	}
	return result, nil
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a new course without an image attached.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create course payload")
	}

	course := &models.Course{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	_ = s.cache.Invalidate(ctx, courseListCachePattern)
	s.logger.Info("course created", zap.String("courseId", course.ID))
	return course, nil
}

// Update modifies the name and description of a course. Image fields are
// only ever changed through the upload and signed URL workflows.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update course payload")
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	course.Name = req.Name
	course.Description = req.Description
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	_ = s.cache.Invalidate(ctx, courseListCachePattern)
	return course, nil
}

// Delete removes a course together with its owned contents.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	_ = s.cache.Invalidate(ctx, courseListCachePattern)
	s.logger.Info("course deleted", zap.String("courseId", id))
	return nil
}

// UploadImage attaches an image to a course. The object key is derived from
// the course, the upload time and the original filename, so every upload
// produces a distinct object. The key is persisted before the object is
// written; a storage failure therefore leaves the key pointing at a missing
// object and the caller is expected to retry the upload.
func (s *CourseService) UploadImage(ctx context.Context, id, originalFilename string, data []byte, contentType string) (*models.Course, error) {
	if originalFilename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image filename is required")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image payload is empty")
	}

	mu := s.courseLock(id)
	mu.Lock()
	defer mu.Unlock()

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s-%d-%s", id, time.Now().UnixMilli(), filepath.Base(originalFilename))

	if err := s.repo.AssignImageKey(ctx, id, key); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record image key")
	}

	start := time.Now()
	err = s.store.Put(ctx, key, data, contentType)
	if s.metrics != nil {
		s.metrics.ObserveStorageOperation("put", time.Since(start))
	}
	if err != nil {
		s.logger.Error("course image upload failed",
			zap.String("courseId", id), zap.String("key", key), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamStorage.Code, appErrors.ErrUpstreamStorage.Status, "failed to store course image")
	}

	course.FileName = &key
	course.ImgURL = nil
	_ = s.cache.Invalidate(ctx, courseListCachePattern)
	s.logger.Info("course image uploaded", zap.String("courseId", id), zap.String("key", key))
	return course, nil
}

// IssueImageURL generates a fresh signed URL for the course image and
// persists it. A course without an uploaded image is a failed precondition,
// not a missing resource.
func (s *CourseService) IssueImageURL(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.FileName == nil || *course.FileName == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course has no uploaded image")
	}

	start := time.Now()
	url, err := s.store.SignedURL(ctx, *course.FileName)
	if s.metrics != nil {
		s.metrics.ObserveStorageOperation("sign", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamStorage.Code, appErrors.ErrUpstreamStorage.Status, "failed to sign course image url")
	}

	if err := s.repo.SetImageURL(ctx, id, url); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist image url")
	}

	course.ImgURL = &url
	_ = s.cache.Invalidate(ctx, courseListCachePattern)
	return course, nil
}

// Export renders the full course catalog in the requested format. Supported
// formats are csv and pdf.
func (s *CourseService) Export(ctx context.Context, format string) ([]byte, string, error) {
	courses, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses for export")
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Name", "Description", "Date Created", "Has Image"},
	}
	for _, course := range courses {
		hasImage := "no"
		if course.FileName != nil && *course.FileName != "" {
			hasImage = "yes"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":           course.ID,
			"Name":         course.Name,
			"Description":  course.Description,
			"Date Created": course.DateCreated.UTC().Format(time.RFC3339),
			"Has Image":    hasImage,
		})
	}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(dataset, "Course Catalog")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
