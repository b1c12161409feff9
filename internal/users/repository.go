package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
)

// Repository defines data access for user records.
type Repository interface {
	List(ctx context.Context, req ListUsersRequest) ([]User, int, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, u User, passwordHash string) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	RoleName(ctx context.Context, roleID int64) (string, error)
	SchoolExists(ctx context.Context, schoolID int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userSelect = `
	SELECT u.id, u.email, u.first_name, u.paternal_last_name, u.maternal_last_name,
	       u.rut, u.active, u.role_id, r.name, u.school_id, u.created_at, u.updated_at
	FROM users u
	JOIN roles r ON r.id = u.role_id`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.PaternalLastName, &u.MaternalLastName,
		&u.RUT, &u.Active, &u.RoleID, &u.RoleName, &u.SchoolID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	return &u, nil
}

func (r *repository) List(ctx context.Context, req ListUsersRequest) ([]User, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.SchoolID != nil {
		conditions = append(conditions, fmt.Sprintf("u.school_id = $%d", argPos))
		args = append(args, *req.SchoolID)
		argPos++
	}
	if req.RoleID != nil {
		conditions = append(conditions, fmt.Sprintf("u.role_id = $%d", argPos))
		args = append(args, *req.RoleID)
		argPos++
	}
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.paternal_last_name ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users u %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf("%s %s ORDER BY u.paternal_last_name, u.first_name LIMIT $%d OFFSET $%d", userSelect, where, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+" WHERE u.id = $1", id))
}

func (r *repository) Create(ctx context.Context, u User, passwordHash string) (int64, error) {
	const query = `
		INSERT INTO users (email, password_hash, first_name, paternal_last_name,
		                   maternal_last_name, rut, active, role_id, school_id)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		u.Email, passwordHash, u.FirstName, u.PaternalLastName,
		u.MaternalLastName, u.RUT, u.RoleID, u.SchoolID,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraintError(err, "create user")
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	// Stable order keeps the query deterministic for logs and tests.
	cols := make([]string, 0, len(updates))
	for col := range updates {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, updates[col])
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapConstraintError(err, "update user")
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) RoleName(ctx context.Context, roleID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, "SELECT name FROM roles WHERE id = $1", roleID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("users: role name: %w", err)
	}
	return name, nil
}

func (r *repository) SchoolExists(ctx context.Context, schoolID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM schools WHERE id = $1)", schoolID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("users: school exists: %w", err)
	}
	return exists, nil
}

// mapConstraintError translates unique violations into ErrAlreadyExists.
func mapConstraintError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_email_key":
			return fmt.Errorf("%w: email already registered", shared.ErrAlreadyExists)
		case "users_rut_key":
			return fmt.Errorf("%w: RUT already registered", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("%w: duplicate user", shared.ErrAlreadyExists)
	}
	return fmt.Errorf("users: %s: %w", op, err)
}

// Directory adapts the repository to the authorization gate's target
// lookups.
type Directory struct {
	repo Repository
}

// NewDirectory builds the gate-facing directory.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// FindTarget implements authz.UserDirectory.
func (d *Directory) FindTarget(ctx context.Context, id int64) (*authz.TargetUser, error) {
	u, err := d.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := authz.ParseRole(u.RoleName)
	if err != nil {
		return nil, err
	}
	return &authz.TargetUser{ID: u.ID, Role: role, SchoolID: u.SchoolID}, nil
}
