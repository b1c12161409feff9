// Package subjects manages teaching subjects attached to a course, e.g.
// "Matemática" taught by a given teacher in "4° B 2026".
package subjects

import "time"

type Subject struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CourseID  int64     `json:"course_id"`
	TeacherID int64     `json:"teacher_id"`
	SchoolID  int64     `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateSubjectRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	CourseID  int64  `json:"course_id" validate:"required,min=1"`
	TeacherID int64  `json:"teacher_id" validate:"required,min=1"`
}

type UpdateSubjectRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=120"`
	TeacherID *int64  `json:"teacher_id" validate:"omitempty,min=1"`
}
