// Package repository persists contacts (clients and prospects).
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

type Contact struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Company      *string
	Email        *string
	Phone        string
	AddressLabel *string
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

type CreateParams struct {
	FirstName    string
	LastName     string
	Company      *string
	Email        *string
	Phone        string
	AddressLabel *string
	CreatedBy    uuid.UUID
}

// UpdateParams carries a partial update; nil fields keep the stored value.
type UpdateParams struct {
	FirstName    *string
	LastName     *string
	Company      *string
	Email        *string
	Phone        *string
	AddressLabel *string
}

const contactColumns = `
	id, first_name, last_name, company, email, phone, address_label,
	created_by, created_at, updated_at, deleted_at`

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Company, &c.Email, &c.Phone, &c.AddressLabel,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	return c, err
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Contact, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (first_name, last_name, company, email, phone, address_label, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING`+contactColumns,
		params.FirstName, params.LastName, params.Company, params.Email, params.Phone, params.AddressLabel, params.CreatedBy,
	)

	contact, err := scanContact(row)
	if err != nil {
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+contactColumns+`
		FROM contacts
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found")
		}
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return contact, nil
}

// List returns active contacts, optionally filtered by a name/company/phone
// search, alphabetical by last name.
func (r *Repository) List(ctx context.Context, search string) ([]Contact, error) {
	query := `
		SELECT` + contactColumns + `
		FROM contacts
		WHERE deleted_at IS NULL`
	args := []interface{}{}

	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` AND (first_name ILIKE $1 OR last_name ILIKE $1 OR company ILIKE $1 OR phone ILIKE $1)`
	}

	query += " ORDER BY last_name ASC, first_name ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (Contact, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE contacts SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			company = COALESCE($4, company),
			email = COALESCE($5, email),
			phone = COALESCE($6, phone),
			address_label = COALESCE($7, address_label),
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING`+contactColumns,
		id, params.FirstName, params.LastName, params.Company, params.Email, params.Phone, params.AddressLabel,
	)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found")
		}
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return contact, nil
}

// SoftDelete hides the contact. Chantiers referencing it keep the link.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contacts SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact not found")
	}
	return nil
}

// ListTrash returns soft-deleted contacts, most recently deleted first.
func (r *Repository) ListTrash(ctx context.Context) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+contactColumns+`
		FROM contacts
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list contact trash: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

// Restore brings a trashed contact back.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID) (Contact, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE contacts SET deleted_at = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING`+contactColumns,
		id,
	)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found in trash")
		}
		return Contact{}, fmt.Errorf("restore contact: %w", err)
	}
	return contact, nil
}

// HardDelete removes a trashed contact permanently. Active rows are never
// hard deleted.
func (r *Repository) HardDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM contacts WHERE id = $1 AND deleted_at IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("hard delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact not found in trash")
	}
	return nil
}

// PurgeTrashBefore removes every trashed contact deleted before the cutoff
// and returns the number of rows purged.
func (r *Repository) PurgeTrashBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM contacts WHERE deleted_at IS NOT NULL AND deleted_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge contact trash: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindByPhone returns the active contact holding the E.164 phone, or NotFound.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+contactColumns+`
		FROM contacts
		WHERE phone = $1 AND deleted_at IS NULL
	`, phone)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact not found")
		}
		return Contact{}, fmt.Errorf("find contact by phone: %w", err)
	}
	return contact, nil
}
