// Package grades manages computed grades and the student answer sheets
// they derive from. Grades are normally produced by the background
// recalculation job when an application closes; manual overrides remain
// possible for administrative roles.
package grades

import "time"

type Grade struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	StudentID     int64     `json:"student_id"`
	Correct       int       `json:"correct"`
	Total         int       `json:"total"`
	Score         float64   `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Answer struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	StudentID     int64     `json:"student_id"`
	QuestionID    int64     `json:"question_id"`
	OptionID      int64     `json:"option_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SubmitAnswerRequest struct {
	ApplicationID int64  `json:"application_id" validate:"required,min=1"`
	QuestionID    int64  `json:"question_id" validate:"required,min=1"`
	OptionID      int64  `json:"option_id" validate:"required,min=1"`
	StudentID     *int64 `json:"student_id" validate:"omitempty,min=1"`
}

type UpdateAnswerRequest struct {
	OptionID int64 `json:"option_id" validate:"required,min=1"`
}

type UpdateGradeRequest struct {
	Score *float64 `json:"score" validate:"omitempty,min=1,max=7"`
}
