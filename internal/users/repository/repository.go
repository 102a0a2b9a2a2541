// Package repository persists user accounts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chantier_portal_backend/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	Phone        *string
	SuspendedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateParams struct {
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	Phone        *string
}

// UpdateParams carries a partial update; nil fields keep the stored value.
// Role changes go through here too, after the service checked the actor may
// manage the target role on both sides of the change.
type UpdateParams struct {
	Email    *string
	FullName *string
	Role     *string
	Phone    *string
}

const userColumns = `
	id, email, full_name, role, password_hash, phone, suspended_at, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.Phone,
		&u.SuspendedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, full_name, role, password_hash, phone)
		VALUES (lower($1), $2, $3, $4, $5)
		RETURNING`+userColumns,
		params.Email, params.FullName, params.Role, params.PasswordHash, params.Phone,
	)

	user, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE email = lower($1)`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListByRoles returns users whose role is in the given set, alphabetical.
// An empty set returns nothing; callers derive the set from the actor's
// visibility rules.
func (r *Repository) ListByRoles(ctx context.Context, roles []string) ([]User, error) {
	if len(roles) == 0 {
		return []User{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE role = ANY($1)
		ORDER BY full_name ASC
	`, roles)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, user)
	}
	return items, rows.Err()
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			email = COALESCE(lower($2), email),
			full_name = COALESCE($3, full_name),
			role = COALESCE($4, role),
			phone = COALESCE($5, phone),
			updated_at = now()
		WHERE id = $1
		RETURNING`+userColumns,
		id, params.Email, params.FullName, params.Role, params.Phone,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// SetPasswordHash replaces the stored credential.
func (r *Repository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// Suspend marks the account suspended; suspended users cannot authenticate.
func (r *Repository) Suspend(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET suspended_at = now(), updated_at = now()
		WHERE id = $1 AND suspended_at IS NULL
		RETURNING`+userColumns,
		id,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found or already suspended")
		}
		return User{}, fmt.Errorf("suspend user: %w", err)
	}
	return user, nil
}

// Reactivate clears a suspension.
func (r *Repository) Reactivate(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET suspended_at = NULL, updated_at = now()
		WHERE id = $1 AND suspended_at IS NOT NULL
		RETURNING`+userColumns,
		id,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found or not suspended")
		}
		return User{}, fmt.Errorf("reactivate user: %w", err)
	}
	return user, nil
}
