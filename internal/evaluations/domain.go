// Package evaluations manages tests built by teachers: the evaluation
// itself, its multiple-choice questions and options, and the applications
// that put an evaluation in front of a course.
package evaluations

import "time"

type Evaluation struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SubjectID   int64     `json:"subject_id"`
	TeacherID   int64     `json:"teacher_id"`
	SchoolID    int64     `json:"school_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Question struct {
	ID           int64     `json:"id"`
	EvaluationID int64     `json:"evaluation_id"`
	Text         string    `json:"text"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Option struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	Text       string    `json:"text"`
	Correct    bool      `json:"correct"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Application schedules an evaluation for a course. A nil ClosedAt means
// students may still submit answers.
type Application struct {
	ID           int64      `json:"id"`
	EvaluationID int64      `json:"evaluation_id"`
	CourseID     int64      `json:"course_id"`
	AppliedOn    time.Time  `json:"applied_on"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Open reports whether the application still accepts answers.
func (a Application) Open() bool { return a.ClosedAt == nil }

type CreateEvaluationRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	SubjectID   int64  `json:"subject_id" validate:"required,min=1"`
	TeacherID   *int64 `json:"teacher_id" validate:"omitempty,min=1"`
}

type UpdateEvaluationRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type CreateQuestionRequest struct {
	Text     string `json:"text" validate:"required,max=2000"`
	Position int    `json:"position" validate:"min=0"`
}

type UpdateQuestionRequest struct {
	Text     *string `json:"text" validate:"omitempty,max=2000"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
}

type CreateOptionRequest struct {
	Text    string `json:"text" validate:"required,max=1000"`
	Correct bool   `json:"correct"`
}

type UpdateOptionRequest struct {
	Text    *string `json:"text" validate:"omitempty,max=1000"`
	Correct *bool   `json:"correct"`
}

type CreateApplicationRequest struct {
	CourseID  int64  `json:"course_id" validate:"required,min=1"`
	AppliedOn string `json:"applied_on" validate:"required,datetime=2006-01-02"`
}
