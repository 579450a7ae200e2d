package models

import "time"

// Course is a catalog item. SeriesName/PartNumber place it into an ordered
// video series; an empty SeriesName means the course stands alone.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description,omitempty"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	SeriesName   string    `db:"series_name" json:"series_name,omitempty"`
	PartNumber   int       `db:"part_number" json:"part_number,omitempty"`
	PriceCents   int64     `db:"price_cents" json:"price_cents"`
	Published    bool      `db:"published" json:"published"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	InstructorID string
	SeriesName   string
	Published    *bool
	Search       string
	Page         int
	PageSize     int
}
