package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/shared"
)

const studentColumns = `s.id, s.first_name, s.paternal_last_name, s.maternal_last_name, s.rut,
	s.user_id, s.course_id, c.school_id, s.created_at, s.updated_at
	FROM students s
	JOIN courses c ON c.id = s.course_id`

// Repository defines data access for students.
type Repository interface {
	// ListBySchool returns every student of a school, or of every school when
	// schoolID is nil. Search filtering happens in the service layer so accent
	// folding stays consistent with user input.
	ListBySchool(ctx context.Context, schoolID, courseID *int64) ([]Student, error)
	Get(ctx context.Context, id int64) (*Student, error)
	Create(ctx context.Context, req CreateStudentRequest) (int64, error)
	Update(ctx context.Context, id int64, req UpdateStudentRequest) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.FirstName, &s.PaternalLastName, &s.MaternalLastName, &s.RUT,
		&s.UserID, &s.CourseID, &s.SchoolID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListBySchool(ctx context.Context, schoolID, courseID *int64) ([]Student, error) {
	where := "WHERE 1=1"
	args := []any{}
	if schoolID != nil {
		args = append(args, *schoolID)
		where += fmt.Sprintf(" AND c.school_id = $%d", len(args))
	}
	if courseID != nil {
		args = append(args, *courseID)
		where += fmt.Sprintf(" AND s.course_id = $%d", len(args))
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.paternal_last_name, s.first_name", studentColumns, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("students: list: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("students: scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		"SELECT "+studentColumns+" WHERE s.id = $1", id))
}

func (r *repository) Create(ctx context.Context, req CreateStudentRequest) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (first_name, paternal_last_name, maternal_last_name, rut, user_id, course_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		req.FirstName, req.PaternalLastName, req.MaternalLastName, req.RUT, req.UserID, req.CourseID).Scan(&id)
	if err != nil {
		return 0, mapConstraintError(err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateStudentRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE students SET
			first_name = COALESCE($1, first_name),
			paternal_last_name = COALESCE($2, paternal_last_name),
			maternal_last_name = COALESCE($3, maternal_last_name),
			course_id = COALESCE($4, course_id),
			updated_at = NOW()
		WHERE id = $5`,
		req.FirstName, req.PaternalLastName, req.MaternalLastName, req.CourseID, id)
	if err != nil {
		return fmt.Errorf("students: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("students: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("student rut already registered: %w", shared.ErrAlreadyExists)
	}
	return fmt.Errorf("students: create: %w", err)
}
