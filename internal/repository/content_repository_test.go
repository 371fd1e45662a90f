package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
)

func contentRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "course_id", "name", "description", "date_created", "created_at", "updated_at",
	}).AddRow("ct1", "c1", "Week 1", "syllabus", now, now, now)
}

func TestContentListIsCourseScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, name, description, date_created, created_at, updated_at FROM contents WHERE 1=1 AND course_id = $1 ORDER BY date_created DESC LIMIT 10 OFFSET 0")).
		WithArgs("c1").
		WillReturnRows(contentRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contents WHERE 1=1 AND course_id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	var spec query.Spec
	spec.Normalize(query.CourseDefaults)

	result, err := repo.ListByCourseID(context.Background(), "c1", spec)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentFindCrossCourseIsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectQuery("SELECT .* FROM contents WHERE course_id").
		WithArgs("other-course", "ct1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCourseIDAndID(context.Background(), "other-course", "ct1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestContentCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec("INSERT INTO contents").WillReturnResult(sqlmock.NewResult(1, 1))

	content := &models.Content{CourseID: "c1", Name: "Week 1", Description: "syllabus"}
	err := repo.Create(context.Background(), content)
	require.NoError(t, err)
	assert.NotEmpty(t, content.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contents WHERE course_id = $1 AND id = $2")).
		WithArgs("c1", "ct1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "c1", "ct1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
