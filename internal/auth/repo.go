package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/shared"
)

// Repository provides account lookups for authentication.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `
	u.id, u.email, u.password_hash, u.first_name, u.paternal_last_name,
	u.maternal_last_name, u.rut, u.active, u.role_id, r.name, u.school_id,
	u.created_at, u.updated_at`

func (r *repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u JOIN roles r ON r.id = u.role_id WHERE u.email = $1`, accountColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, accountColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) scanOne(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.PaternalLastName,
		&a.MaternalLastName, &a.RUT, &a.Active, &a.RoleID, &a.RoleName, &a.SchoolID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan account: %w", err)
	}
	return &a, nil
}
