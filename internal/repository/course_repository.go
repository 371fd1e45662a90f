package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
)

const courseColumns = "id, name, description, date_created, file_name, img_url, created_at, updated_at"

func courseDefinition() query.Definition {
	return query.Definition{
		Table: "courses",
		SelectColumns: []string{
			"id", "name", "description", "date_created", "file_name",
			"img_url", "created_at", "updated_at",
		},
		FuzzyFields: map[string]string{
			"name":        "name",
			"description": "description",
		},
		SortFields: map[string]string{
			"dateCreated": "date_created",
			"name":        "name",
			"description": "description",
		},
		DefaultSortColumn: "date_created",
	}
}

// CourseRepository manages persistence for course records.
type CourseRepository struct {
	db     *sqlx.DB
	engine *query.Engine[models.Course]
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{
		db:     db,
		engine: query.NewEngine[models.Course](db, courseDefinition()),
	}
}

// List returns a page of courses matching the spec filters.
func (r *CourseRepository) List(ctx context.Context, spec query.Spec) (*query.Result[models.Course], error) {
	return r.engine.List(ctx, spec)
}

// ListAll returns every course ordered by creation date, used by the catalog
// export.
func (r *CourseRepository) ListAll(ctx context.Context) ([]models.Course, error) {
	queryStr := fmt.Sprintf("SELECT %s FROM courses ORDER BY date_created DESC", courseColumns)
	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, queryStr); err != nil {
		return nil, fmt.Errorf("list all courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	queryStr := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1 LIMIT 1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, queryStr, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.DateCreated.IsZero() {
		course.DateCreated = now
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const queryStr = `INSERT INTO courses (id, name, description, date_created, file_name, img_url, created_at, updated_at)
        VALUES (:id, :name, :description, :date_created, :file_name, :img_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, queryStr, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies the name and description of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const queryStr = `UPDATE courses SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, queryStr, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// AssignImageKey persists the object key and clears the previously issued
// URL in the same statement.
func (r *CourseRepository) AssignImageKey(ctx context.Context, id, fileName string) error {
	const queryStr = `UPDATE courses SET file_name = $2, img_url = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, queryStr, id, fileName, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign course image key: %w", err)
	}
	return nil
}

// SetImageURL persists a freshly issued signed URL.
func (r *CourseRepository) SetImageURL(ctx context.Context, id, url string) error {
	const queryStr = `UPDATE courses SET img_url = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, queryStr, id, url, time.Now().UTC()); err != nil {
		return fmt.Errorf("set course image url: %w", err)
	}
	return nil
}

// Delete removes a course; owned contents are removed by the database
// cascade.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const queryStr = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, queryStr, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
