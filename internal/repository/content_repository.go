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

const contentColumns = "id, course_id, name, description, date_created, created_at, updated_at"

func contentDefinition() query.Definition {
	return query.Definition{
		Table: "contents",
		SelectColumns: []string{
			"id", "course_id", "name", "description", "date_created",
			"created_at", "updated_at",
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

// ContentRepository manages persistence for course content items.
type ContentRepository struct {
	db     *sqlx.DB
	engine *query.Engine[models.Content]
}

// NewContentRepository constructs a ContentRepository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{
		db:     db,
		engine: query.NewEngine[models.Content](db, contentDefinition()),
	}
}

// ListByCourseID returns a page of contents scoped to one course. The course
// scope is merged server-side and cannot be overridden by caller filters.
func (r *ContentRepository) ListByCourseID(ctx context.Context, courseID string, spec query.Spec) (*query.Result[models.Content], error) {
	return r.engine.List(ctx, spec, query.Scope{Column: "course_id", Value: courseID})
}

// FindByCourseIDAndID fetches a content item by its (course, id) pair. An id
// that exists under a different course yields sql.ErrNoRows.
func (r *ContentRepository) FindByCourseIDAndID(ctx context.Context, courseID, id string) (*models.Content, error) {
	queryStr := fmt.Sprintf("SELECT %s FROM contents WHERE course_id = $1 AND id = $2 LIMIT 1", contentColumns)
	var content models.Content
	if err := r.db.GetContext(ctx, &content, queryStr, courseID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find content by course and id: %w", err)
	}
	return &content, nil
}

// Create inserts a new content item under its owning course.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if content.DateCreated.IsZero() {
		content.DateCreated = now
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now

	const queryStr = `INSERT INTO contents (id, course_id, name, description, date_created, created_at, updated_at)
        VALUES (:id, :course_id, :name, :description, :date_created, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, queryStr, content); err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// Update modifies the name and description of a content item.
func (r *ContentRepository) Update(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const queryStr = `UPDATE contents SET name = :name, description = :description, updated_at = :updated_at
        WHERE id = :id AND course_id = :course_id`
	if _, err := r.db.NamedExecContext(ctx, queryStr, content); err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

// Delete removes a content item addressed by its (course, id) pair.
func (r *ContentRepository) Delete(ctx context.Context, courseID, id string) error {
	const queryStr = `DELETE FROM contents WHERE course_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, queryStr, courseID, id); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}
