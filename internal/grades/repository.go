package grades

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
)

const gradeColumns = "g.id, g.application_id, g.student_id, g.correct, g.total, g.score, g.created_at, g.updated_at"

const answerColumns = "a.id, a.application_id, a.student_id, a.question_id, a.option_id, a.created_at, a.updated_at"

// Repository defines data access for grades and answers.
type Repository interface {
	ListGrades(ctx context.Context, schoolID, applicationID, studentID *int64) ([]Grade, error)
	GetGrade(ctx context.Context, id int64) (*Grade, error)
	UpdateGradeScore(ctx context.Context, id int64, score float64) error
	DeleteGrade(ctx context.Context, id int64) error

	ListAnswers(ctx context.Context, applicationID int64, studentID *int64) ([]Answer, error)
	GetAnswer(ctx context.Context, id int64) (*Answer, error)
	SubmitAnswer(ctx context.Context, applicationID, studentID, questionID, optionID int64) (*Answer, error)
	UpdateAnswerOption(ctx context.Context, id int64, optionID int64) error
	DeleteAnswer(ctx context.Context, id int64) error

	// StudentIDForUser maps an authenticated user to their student record.
	StudentIDForUser(ctx context.Context, userID int64) (int64, error)
	// ApplicationState reports whether the application still accepts answers
	// and which school it belongs to.
	ApplicationState(ctx context.Context, applicationID int64) (open bool, schoolID int64, err error)

	// GradeResource and AnswerResource resolve ownership for the
	// authorization catalog. The owner is the linked user account of the
	// student the row belongs to.
	GradeResource(ctx context.Context, id int64) (*authz.Resource, error)
	AnswerResource(ctx context.Context, id int64) (*authz.Resource, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanGrade(row pgx.Row) (*Grade, error) {
	var g Grade
	err := row.Scan(&g.ID, &g.ApplicationID, &g.StudentID, &g.Correct, &g.Total, &g.Score, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *repository) ListGrades(ctx context.Context, schoolID, applicationID, studentID *int64) ([]Grade, error) {
	join := ""
	where := "WHERE 1=1"
	args := []any{}
	if schoolID != nil {
		join = `JOIN applications ap ON ap.id = g.application_id
			JOIN courses c ON c.id = ap.course_id`
		args = append(args, *schoolID)
		where += fmt.Sprintf(" AND c.school_id = $%d", len(args))
	}
	if applicationID != nil {
		args = append(args, *applicationID)
		where += fmt.Sprintf(" AND g.application_id = $%d", len(args))
	}
	if studentID != nil {
		args = append(args, *studentID)
		where += fmt.Sprintf(" AND g.student_id = $%d", len(args))
	}

	query := fmt.Sprintf("SELECT %s FROM grades g %s %s ORDER BY g.id", gradeColumns, join, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grades: list: %w", err)
	}
	defer rows.Close()

	var out []Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, fmt.Errorf("grades: scan: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *repository) GetGrade(ctx context.Context, id int64) (*Grade, error) {
	return scanGrade(r.pool.QueryRow(ctx,
		"SELECT "+gradeColumns+" FROM grades g WHERE g.id = $1", id))
}

func (r *repository) UpdateGradeScore(ctx context.Context, id int64, score float64) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE grades SET score = $1, updated_at = NOW() WHERE id = $2", score, id)
	if err != nil {
		return fmt.Errorf("grades: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteGrade(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM grades WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("grades: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAnswer(row pgx.Row) (*Answer, error) {
	var a Answer
	err := row.Scan(&a.ID, &a.ApplicationID, &a.StudentID, &a.QuestionID, &a.OptionID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListAnswers(ctx context.Context, applicationID int64, studentID *int64) ([]Answer, error) {
	where := "WHERE a.application_id = $1"
	args := []any{applicationID}
	if studentID != nil {
		args = append(args, *studentID)
		where += fmt.Sprintf(" AND a.student_id = $%d", len(args))
	}

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM answers a %s ORDER BY a.question_id", answerColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("answers: list: %w", err)
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("answers: scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *repository) GetAnswer(ctx context.Context, id int64) (*Answer, error) {
	return scanAnswer(r.pool.QueryRow(ctx,
		"SELECT "+answerColumns+" FROM answers a WHERE a.id = $1", id))
}

// SubmitAnswer upserts on (application_id, student_id, question_id) so a
// student changing their mind before the application closes replaces the
// earlier pick.
func (r *repository) SubmitAnswer(ctx context.Context, applicationID, studentID, questionID, optionID int64) (*Answer, error) {
	return scanAnswer(r.pool.QueryRow(ctx, `
		INSERT INTO answers (application_id, student_id, question_id, option_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (application_id, student_id, question_id)
		DO UPDATE SET option_id = EXCLUDED.option_id, updated_at = NOW()
		RETURNING id, application_id, student_id, question_id, option_id, created_at, updated_at`,
		applicationID, studentID, questionID, optionID))
}

func (r *repository) UpdateAnswerOption(ctx context.Context, id int64, optionID int64) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE answers SET option_id = $1, updated_at = NOW() WHERE id = $2", optionID, id)
	if err != nil {
		return fmt.Errorf("answers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteAnswer(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM answers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("answers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) StudentIDForUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, "SELECT id FROM students WHERE user_id = $1", userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("grades: resolve student: %w", err)
	}
	return id, nil
}

func (r *repository) ApplicationState(ctx context.Context, applicationID int64) (bool, int64, error) {
	var (
		open     bool
		schoolID int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT ap.closed_at IS NULL, c.school_id
		FROM applications ap
		JOIN courses c ON c.id = ap.course_id
		WHERE ap.id = $1`, applicationID).Scan(&open, &schoolID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, shared.ErrNotFound
		}
		return false, 0, fmt.Errorf("grades: check application: %w", err)
	}
	return open, schoolID, nil
}

func (r *repository) GradeResource(ctx context.Context, id int64) (*authz.Resource, error) {
	return r.scanResource(ctx, `
		SELECT g.id, COALESCE(s.user_id, 0), c.school_id
		FROM grades g
		JOIN students s ON s.id = g.student_id
		JOIN applications ap ON ap.id = g.application_id
		JOIN courses c ON c.id = ap.course_id
		WHERE g.id = $1`, id)
}

func (r *repository) AnswerResource(ctx context.Context, id int64) (*authz.Resource, error) {
	return r.scanResource(ctx, `
		SELECT a.id, COALESCE(s.user_id, 0), c.school_id
		FROM answers a
		JOIN students s ON s.id = a.student_id
		JOIN applications ap ON ap.id = a.application_id
		JOIN courses c ON c.id = ap.course_id
		WHERE a.id = $1`, id)
}

func (r *repository) scanResource(ctx context.Context, query string, id int64) (*authz.Resource, error) {
	var res authz.Resource
	var schoolID int64
	err := r.pool.QueryRow(ctx, query, id).Scan(&res.ID, &res.OwnerID, &schoolID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("grades: resolve resource: %w", err)
	}
	res.SchoolID = &schoolID
	return &res, nil
}
