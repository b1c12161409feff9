// Package students manages pupil enrollment records tied to a course.
package students

import "time"

type Student struct {
	ID               int64     `json:"id"`
	FirstName        string    `json:"first_name"`
	PaternalLastName string    `json:"paternal_last_name"`
	MaternalLastName string    `json:"maternal_last_name"`
	RUT              string    `json:"rut"`
	UserID           *int64    `json:"user_id,omitempty"`
	CourseID         int64     `json:"course_id"`
	SchoolID         int64     `json:"school_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateStudentRequest struct {
	FirstName        string `json:"first_name" validate:"required,max=120"`
	PaternalLastName string `json:"paternal_last_name" validate:"required,max=120"`
	MaternalLastName string `json:"maternal_last_name" validate:"max=120"`
	RUT              string `json:"rut" validate:"required,max=12"`
	UserID           *int64 `json:"user_id" validate:"omitempty,min=1"`
	CourseID         int64  `json:"course_id" validate:"required,min=1"`
}

type UpdateStudentRequest struct {
	FirstName        *string `json:"first_name" validate:"omitempty,max=120"`
	PaternalLastName *string `json:"paternal_last_name" validate:"omitempty,max=120"`
	MaternalLastName *string `json:"maternal_last_name" validate:"omitempty,max=120"`
	CourseID         *int64  `json:"course_id" validate:"omitempty,min=1"`
}
