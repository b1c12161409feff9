package subjects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/shared"
)

// subjectColumns joins through courses so every subject carries the school
// it belongs to.
const subjectColumns = `s.id, s.name, s.course_id, s.teacher_id, c.school_id, s.created_at, s.updated_at
	FROM subjects s
	JOIN courses c ON c.id = s.course_id`

// Repository defines data access for subjects.
type Repository interface {
	List(ctx context.Context, schoolID, courseID *int64, page shared.Pagination) ([]Subject, int64, error)
	Get(ctx context.Context, id int64) (*Subject, error)
	Create(ctx context.Context, req CreateSubjectRequest) (int64, error)
	Update(ctx context.Context, id int64, req UpdateSubjectRequest) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanSubject(row pgx.Row) (*Subject, error) {
	var s Subject
	err := row.Scan(&s.ID, &s.Name, &s.CourseID, &s.TeacherID, &s.SchoolID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, schoolID, courseID *int64, page shared.Pagination) ([]Subject, int64, error) {
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

	var total int64
	countQuery := "SELECT COUNT(*) FROM subjects s JOIN courses c ON c.id = s.course_id " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("subjects: count: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.name LIMIT $%d OFFSET $%d",
		subjectColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("subjects: list: %w", err)
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("subjects: scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Subject, error) {
	return scanSubject(r.pool.QueryRow(ctx,
		"SELECT "+subjectColumns+" WHERE s.id = $1", id))
}

func (r *repository) Create(ctx context.Context, req CreateSubjectRequest) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO subjects (name, course_id, teacher_id)
		VALUES ($1, $2, $3)
		RETURNING id`,
		req.Name, req.CourseID, req.TeacherID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("subjects: create: %w", err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateSubjectRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subjects SET
			name = COALESCE($1, name),
			teacher_id = COALESCE($2, teacher_id),
			updated_at = NOW()
		WHERE id = $3`,
		req.Name, req.TeacherID, id)
	if err != nil {
		return fmt.Errorf("subjects: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM subjects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("subjects: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
