// Package courses manages course groups within a school, e.g. "4° B 2026".
package courses

import "time"

type Course struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Level     string    `json:"level"`
	Letter    string    `json:"letter"`
	Year      int       `json:"year"`
	SchoolID  int64     `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCourseRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Level    string `json:"level" validate:"required,max=60"`
	Letter   string `json:"letter" validate:"required,max=4"`
	Year     int    `json:"year" validate:"required,min=2000,max=2100"`
	SchoolID int64  `json:"school_id" validate:"required,min=1"`
}

type UpdateCourseRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=120"`
	Level  *string `json:"level" validate:"omitempty,max=60"`
	Letter *string `json:"letter" validate:"omitempty,max=4"`
	Year   *int    `json:"year" validate:"omitempty,min=2000,max=2100"`
}
