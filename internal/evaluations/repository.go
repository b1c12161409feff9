package evaluations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
)

// evaluationColumns joins through subjects and courses so every evaluation
// carries its school.
const evaluationColumns = `e.id, e.title, e.description, e.subject_id, e.teacher_id, c.school_id,
	e.created_at, e.updated_at
	FROM evaluations e
	JOIN subjects s ON s.id = e.subject_id
	JOIN courses c ON c.id = s.course_id`

// Repository defines data access for evaluations and their child records.
type Repository interface {
	List(ctx context.Context, schoolID, teacherID *int64, page shared.Pagination) ([]Evaluation, int64, error)
	Get(ctx context.Context, id int64) (*Evaluation, error)
	Create(ctx context.Context, req CreateEvaluationRequest, teacherID int64) (int64, error)
	// SubjectSchool resolves the school a subject belongs to through its
	// course.
	SubjectSchool(ctx context.Context, subjectID int64) (int64, error)
	Update(ctx context.Context, id int64, req UpdateEvaluationRequest) error
	Delete(ctx context.Context, id int64) error

	ListQuestions(ctx context.Context, evaluationID int64) ([]Question, error)
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	CreateQuestion(ctx context.Context, evaluationID int64, req CreateQuestionRequest) (*Question, error)
	UpdateQuestion(ctx context.Context, id int64, req UpdateQuestionRequest) error
	DeleteQuestion(ctx context.Context, id int64) error

	ListOptions(ctx context.Context, questionID int64) ([]Option, error)
	CreateOption(ctx context.Context, questionID int64, req CreateOptionRequest) (*Option, error)
	UpdateOption(ctx context.Context, id int64, req UpdateOptionRequest) error
	DeleteOption(ctx context.Context, id int64) error

	ListApplications(ctx context.Context, schoolID, evaluationID *int64, page shared.Pagination) ([]Application, int64, error)
	GetApplication(ctx context.Context, id int64) (*Application, error)
	CreateApplication(ctx context.Context, evaluationID int64, courseID int64, appliedOn time.Time) (*Application, error)
	CloseApplication(ctx context.Context, id int64) (*Application, error)

	// Resource lookups resolve ownership for the authorization catalog.
	// Children inherit the owning teacher of their evaluation.
	EvaluationResource(ctx context.Context, id int64) (*authz.Resource, error)
	QuestionResource(ctx context.Context, id int64) (*authz.Resource, error)
	OptionResource(ctx context.Context, id int64) (*authz.Resource, error)
	ApplicationResource(ctx context.Context, id int64) (*authz.Resource, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanEvaluation(row pgx.Row) (*Evaluation, error) {
	var e Evaluation
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.SubjectID, &e.TeacherID, &e.SchoolID,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, schoolID, teacherID *int64, page shared.Pagination) ([]Evaluation, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if schoolID != nil {
		args = append(args, *schoolID)
		where += fmt.Sprintf(" AND c.school_id = $%d", len(args))
	}
	if teacherID != nil {
		args = append(args, *teacherID)
		where += fmt.Sprintf(" AND e.teacher_id = $%d", len(args))
	}

	var total int64
	countQuery := `SELECT COUNT(*)
		FROM evaluations e
		JOIN subjects s ON s.id = e.subject_id
		JOIN courses c ON c.id = s.course_id ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("evaluations: count: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d",
		evaluationColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("evaluations: list: %w", err)
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("evaluations: scan: %w", err)
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Evaluation, error) {
	return scanEvaluation(r.pool.QueryRow(ctx,
		"SELECT "+evaluationColumns+" WHERE e.id = $1", id))
}

func (r *repository) Create(ctx context.Context, req CreateEvaluationRequest, teacherID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO evaluations (title, description, subject_id, teacher_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		req.Title, req.Description, req.SubjectID, teacherID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("evaluations: create: %w", err)
	}
	return id, nil
}

func (r *repository) SubjectSchool(ctx context.Context, subjectID int64) (int64, error) {
	var schoolID int64
	err := r.pool.QueryRow(ctx, `
		SELECT c.school_id
		FROM subjects s
		JOIN courses c ON c.id = s.course_id
		WHERE s.id = $1`, subjectID).Scan(&schoolID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("evaluations: resolve subject school: %w", err)
	}
	return schoolID, nil
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateEvaluationRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE evaluations SET
			title = COALESCE($1, title),
			description = COALESCE($2, description),
			updated_at = NOW()
		WHERE id = $3`,
		req.Title, req.Description, id)
	if err != nil {
		return fmt.Errorf("evaluations: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM evaluations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("evaluations: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const questionColumns = "id, evaluation_id, text, position, created_at, updated_at"

func scanQuestion(row pgx.Row) (*Question, error) {
	var q Question
	err := row.Scan(&q.ID, &q.EvaluationID, &q.Text, &q.Position, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) ListQuestions(ctx context.Context, evaluationID int64) ([]Question, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE evaluation_id = $1 ORDER BY position, id", evaluationID)
	if err != nil {
		return nil, fmt.Errorf("questions: list: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("questions: scan: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (r *repository) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE id = $1", id))
}

func (r *repository) CreateQuestion(ctx context.Context, evaluationID int64, req CreateQuestionRequest) (*Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `
		INSERT INTO questions (evaluation_id, text, position)
		VALUES ($1, $2, $3)
		RETURNING `+questionColumns,
		evaluationID, req.Text, req.Position))
}

func (r *repository) UpdateQuestion(ctx context.Context, id int64, req UpdateQuestionRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions SET
			text = COALESCE($1, text),
			position = COALESCE($2, position),
			updated_at = NOW()
		WHERE id = $3`,
		req.Text, req.Position, id)
	if err != nil {
		return fmt.Errorf("questions: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteQuestion(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM questions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("questions: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const optionColumns = "id, question_id, text, correct, created_at, updated_at"

func scanOption(row pgx.Row) (*Option, error) {
	var o Option
	err := row.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Correct, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) ListOptions(ctx context.Context, questionID int64) ([]Option, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+optionColumns+" FROM options WHERE question_id = $1 ORDER BY id", questionID)
	if err != nil {
		return nil, fmt.Errorf("options: list: %w", err)
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("options: scan: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *repository) CreateOption(ctx context.Context, questionID int64, req CreateOptionRequest) (*Option, error) {
	return scanOption(r.pool.QueryRow(ctx, `
		INSERT INTO options (question_id, text, correct)
		VALUES ($1, $2, $3)
		RETURNING `+optionColumns,
		questionID, req.Text, req.Correct))
}

func (r *repository) UpdateOption(ctx context.Context, id int64, req UpdateOptionRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE options SET
			text = COALESCE($1, text),
			correct = COALESCE($2, correct),
			updated_at = NOW()
		WHERE id = $3`,
		req.Text, req.Correct, id)
	if err != nil {
		return fmt.Errorf("options: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteOption(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM options WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("options: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const applicationColumns = `a.id, a.evaluation_id, a.course_id, a.applied_on, a.closed_at,
	a.created_at, a.updated_at
	FROM applications a`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.EvaluationID, &a.CourseID, &a.AppliedOn, &a.ClosedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListApplications(ctx context.Context, schoolID, evaluationID *int64, page shared.Pagination) ([]Application, int64, error) {
	join := ""
	where := "WHERE 1=1"
	args := []any{}
	if schoolID != nil {
		join = "JOIN courses c ON c.id = a.course_id"
		args = append(args, *schoolID)
		where += fmt.Sprintf(" AND c.school_id = $%d", len(args))
	}
	if evaluationID != nil {
		args = append(args, *evaluationID)
		where += fmt.Sprintf(" AND a.evaluation_id = $%d", len(args))
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM applications a %s %s", join, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("applications: count: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY a.applied_on DESC LIMIT $%d OFFSET $%d",
		applicationColumns, join, where, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("applications: list: %w", err)
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("applications: scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (r *repository) GetApplication(ctx context.Context, id int64) (*Application, error) {
	return scanApplication(r.pool.QueryRow(ctx,
		"SELECT "+applicationColumns+" WHERE a.id = $1", id))
}

func (r *repository) CreateApplication(ctx context.Context, evaluationID int64, courseID int64, appliedOn time.Time) (*Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, `
		INSERT INTO applications (evaluation_id, course_id, applied_on)
		VALUES ($1, $2, $3)
		RETURNING `+strippedApplicationColumns(),
		evaluationID, courseID, appliedOn))
}

// CloseApplication marks the application closed exactly once. Closing an
// already closed application returns it unchanged.
func (r *repository) CloseApplication(ctx context.Context, id int64) (*Application, error) {
	app, err := scanApplication(r.pool.QueryRow(ctx, `
		UPDATE applications SET closed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND closed_at IS NULL
		RETURNING `+strippedApplicationColumns(), id))
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("applications: close: %w", err)
	}
	return r.GetApplication(ctx, id)
}

// strippedApplicationColumns is applicationColumns without the FROM clause,
// for RETURNING lists.
func strippedApplicationColumns() string {
	return `a.id, a.evaluation_id, a.course_id, a.applied_on, a.closed_at, a.created_at, a.updated_at`
}

func (r *repository) EvaluationResource(ctx context.Context, id int64) (*authz.Resource, error) {
	return r.scanResource(ctx, `
		SELECT e.id, e.teacher_id, c.school_id
		FROM evaluations e
		JOIN subjects s ON s.id = e.subject_id
		JOIN courses c ON c.id = s.course_id
		WHERE e.id = $1`, id)
}

func (r *repository) QuestionResource(ctx context.Context, id int64) (*authz.Resource, error) {
	return r.scanResource(ctx, `
		SELECT q.id, e.teacher_id, c.school_id
		FROM questions q
		JOIN evaluations e ON e.id = q.evaluation_id
		JOIN subjects s ON s.id = e.subject_id
		JOIN courses c ON c.id = s.course_id
		WHERE q.id = $1`, id)
}

func (r *repository) OptionResource(ctx context.Context, id int64) (*authz.Resource, error) {
	return r.scanResource(ctx, `
		SELECT o.id, e.teacher_id, c.school_id
		FROM options o
		JOIN questions q ON q.id = o.question_id
		JOIN evaluations e ON e.id = q.evaluation_id
		JOIN subjects s ON s.id = e.subject_id
		JOIN courses c ON c.id = s.course_id
		WHERE o.id = $1`, id)
}

func (r *repository) ApplicationResource(ctx context.Context, id int64) (*authz.Resource, error) {
	return r.scanResource(ctx, `
		SELECT a.id, e.teacher_id, c.school_id
		FROM applications a
		JOIN evaluations e ON e.id = a.evaluation_id
		JOIN subjects s ON s.id = e.subject_id
		JOIN courses c ON c.id = s.course_id
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
		return nil, fmt.Errorf("evaluations: resolve resource: %w", err)
	}
	res.SchoolID = &schoolID
	return &res, nil
}
