package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/shared"
)

const courseColumns = "id, name, level, letter, year, school_id, created_at, updated_at"

// Repository defines data access for courses.
type Repository interface {
	List(ctx context.Context, schoolID *int64, page shared.Pagination) ([]Course, int64, error)
	Get(ctx context.Context, id int64) (*Course, error)
	Create(ctx context.Context, req CreateCourseRequest) (*Course, error)
	Update(ctx context.Context, id int64, req UpdateCourseRequest) (*Course, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.Level, &c.Letter, &c.Year, &c.SchoolID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, schoolID *int64, page shared.Pagination) ([]Course, int64, error) {
	where := ""
	args := []any{}
	if schoolID != nil {
		where = "WHERE school_id = $1"
		args = append(args, *schoolID)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("courses: count: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM courses %s ORDER BY year DESC, name LIMIT $%d OFFSET $%d",
		courseColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("courses: list: %w", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("courses: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Course, error) {
	return scanCourse(r.pool.QueryRow(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE id = $1", id))
}

func (r *repository) Create(ctx context.Context, req CreateCourseRequest) (*Course, error) {
	return scanCourse(r.pool.QueryRow(ctx, `
		INSERT INTO courses (name, level, letter, year, school_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+courseColumns,
		req.Name, req.Level, req.Letter, req.Year, req.SchoolID))
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateCourseRequest) (*Course, error) {
	return scanCourse(r.pool.QueryRow(ctx, `
		UPDATE courses SET
			name = COALESCE($1, name),
			level = COALESCE($2, level),
			letter = COALESCE($3, letter),
			year = COALESCE($4, year),
			updated_at = NOW()
		WHERE id = $5
		RETURNING `+courseColumns,
		req.Name, req.Level, req.Letter, req.Year, id))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("courses: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
