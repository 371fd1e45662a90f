package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type contentRepository interface {
	ListByCourseID(ctx context.Context, courseID string, spec query.Spec) (*query.Result[models.Content], error)
	FindByCourseIDAndID(ctx context.Context, courseID, id string) (*models.Content, error)
	Create(ctx context.Context, content *models.Content) error
	Update(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, courseID, id string) error
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// ContentRequest is the payload for creating and updating content items.
type ContentRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// ContentService handles content items scoped to their owning course.
type ContentService struct {
	repo      contentRepository
	courses   courseFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContentService creates an instance of ContentService.
func NewContentService(repo contentRepository, courses courseFinder, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContentService{repo: repo, courses: courses, validator: validate, logger: logger}
}

func (s *ContentService) requireCourse(ctx context.Context, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return nil
}

// List returns a page of contents belonging to the given course.
func (s *ContentService) List(ctx context.Context, courseID string, spec query.Spec) (*query.Result[models.Content], error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	spec.Normalize(query.CourseDefaults)
	result, err := s.repo.ListByCourseID(ctx, courseID, spec)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrValidation.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contents")
	}
	return result, nil
}

// Get returns a content item by its (course, id) pair. An id that exists
// under a different course is reported as not found.
func (s *ContentService) Get(ctx context.Context, courseID, id string) (*models.Content, error) {
	content, err := s.repo.FindByCourseIDAndID(ctx, courseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return content, nil
}

// Create adds a content item under an existing course.
func (s *ContentService) Create(ctx context.Context, courseID string, req ContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create content payload")
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}

	content := &models.Content{
		CourseID:    courseID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}

	s.logger.Info("content created", zap.String("courseId", courseID), zap.String("contentId", content.ID))
	return content, nil
}

// Update modifies the name and description of a content item.
func (s *ContentService) Update(ctx context.Context, courseID, id string, req ContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update content payload")
	}

	content, err := s.Get(ctx, courseID, id)
	if err != nil {
		return nil, err
	}

	content.Name = req.Name
	content.Description = req.Description
	if err := s.repo.Update(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
	}
	return content, nil
}

// Delete removes a content item from its course.
func (s *ContentService) Delete(ctx context.Context, courseID, id string) error {
	if _, err := s.Get(ctx, courseID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, courseID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}
	s.logger.Info("content deleted", zap.String("courseId", courseID), zap.String("contentId", id))
	return nil
}
