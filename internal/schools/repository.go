package schools

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/shared"
)

// Repository defines data access for schools.
type Repository interface {
	List(ctx context.Context) ([]School, error)
	Get(ctx context.Context, id int64) (*School, error)
	Create(ctx context.Context, s School) (int64, error)
	Update(ctx context.Context, id int64, req UpdateSchoolRequest) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const schoolSelect = `SELECT id, name, address, commune, phone, created_at, updated_at FROM schools`

func scanSchool(row pgx.Row) (*School, error) {
	var s School
	if err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Commune, &s.Phone, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("schools: scan: %w", err)
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context) ([]School, error) {
	rows, err := r.pool.Query(ctx, schoolSelect+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("schools: list: %w", err)
	}
	defer rows.Close()

	var out []School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*School, error) {
	return scanSchool(r.pool.QueryRow(ctx, schoolSelect+" WHERE id = $1", id))
}

func (r *repository) Create(ctx context.Context, s School) (int64, error) {
	const query = `INSERT INTO schools (name, address, commune, phone) VALUES ($1, $2, $3, $4) RETURNING id`
	var id int64
	if err := r.pool.QueryRow(ctx, query, s.Name, s.Address, s.Commune, s.Phone).Scan(&id); err != nil {
		return 0, fmt.Errorf("schools: create: %w", err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateSchoolRequest) error {
	const query = `
		UPDATE schools SET
			name = COALESCE($1, name),
			address = COALESCE($2, address),
			commune = COALESCE($3, commune),
			phone = COALESCE($4, phone),
			updated_at = NOW()
		WHERE id = $5`
	tag, err := r.pool.Exec(ctx, query, req.Name, req.Address, req.Commune, req.Phone, id)
	if err != nil {
		return fmt.Errorf("schools: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM schools WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("schools: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
