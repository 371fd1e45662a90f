package models

import "time"

// Content is a content item belonging to exactly one course. CourseID is
// immutable after creation; content is only ever addressed through its
// owning course.
type Content struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"courseId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	DateCreated time.Time `db:"date_created" json:"dateCreated"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
