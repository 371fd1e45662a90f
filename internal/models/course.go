package models

import "time"

// Course represents a course record owning content items. FileName holds the
// object-store key of the cover image, ImgUrl the last issued signed URL;
// both are nil until an image has been uploaded.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	DateCreated time.Time `db:"date_created" json:"dateCreated"`
	FileName    *string   `db:"file_name" json:"fileName"`
	ImgURL      *string   `db:"img_url" json:"imgUrl"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
