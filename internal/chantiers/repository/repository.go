// Package repository persists chantiers, their poseur assignments and notes.
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

// Chantier is the persistence model. Address coordinates are nullable: a
// freeform confirmed label may never have been geocoded.
type Chantier struct {
	ID              uuid.UUID
	Name            string
	Description     *string
	ClientID        *uuid.UUID
	CategoryID      *uuid.UUID
	TypeID          *uuid.UUID
	StatusID        *uuid.UUID
	AddressLabel    string
	AddressLat      *float64
	AddressLng      *float64
	ChargeAffaireID *uuid.UUID
	StartDate       *time.Time
	EndDate         *time.Time
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Note is a chantier note. Notes are append-only.
type Note struct {
	ID         uuid.UUID
	ChantierID uuid.UUID
	AuthorID   uuid.UUID
	Body       string
	CreatedAt  time.Time
}

type CreateParams struct {
	Name            string
	Description     *string
	ClientID        *uuid.UUID
	CategoryID      *uuid.UUID
	TypeID          *uuid.UUID
	StatusID        *uuid.UUID
	AddressLabel    string
	AddressLat      *float64
	AddressLng      *float64
	ChargeAffaireID *uuid.UUID
	StartDate       *time.Time
	EndDate         *time.Time
	CreatedBy       uuid.UUID
}

// UpdateParams carries a partial update; nil fields keep the stored value.
type UpdateParams struct {
	Name        *string
	Description *string
	ClientID    *uuid.UUID
	CategoryID  *uuid.UUID
	TypeID      *uuid.UUID
	StatusID    *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
}

// Filter narrows List. ForChargeAffaire and ForPoseur implement the
// assigned-only visibility of the lower roles.
type Filter struct {
	ForChargeAffaire *uuid.UUID
	ForPoseur        *uuid.UUID
	StatusID         *uuid.UUID
	Search           string
}

const chantierColumns = `
	c.id, c.name, c.description, c.client_id, c.category_id, c.type_id, c.status_id,
	c.address_label, c.address_lat, c.address_lng, c.charge_affaire_id,
	c.start_date, c.end_date, c.created_by, c.created_at, c.updated_at, c.deleted_at`

// Same column list without the alias, for INSERT/UPDATE ... RETURNING.
const chantierReturning = `
	id, name, description, client_id, category_id, type_id, status_id,
	address_label, address_lat, address_lng, charge_affaire_id,
	start_date, end_date, created_by, created_at, updated_at, deleted_at`

func scanChantier(row pgx.Row) (Chantier, error) {
	var c Chantier
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.ClientID, &c.CategoryID, &c.TypeID, &c.StatusID,
		&c.AddressLabel, &c.AddressLat, &c.AddressLng, &c.ChargeAffaireID,
		&c.StartDate, &c.EndDate, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	return c, err
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Chantier, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO chantiers (
			name, description, client_id, category_id, type_id, status_id,
			address_label, address_lat, address_lng, charge_affaire_id,
			start_date, end_date, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING`+chantierReturning,
		params.Name, params.Description, params.ClientID, params.CategoryID, params.TypeID, params.StatusID,
		params.AddressLabel, params.AddressLat, params.AddressLng, params.ChargeAffaireID,
		params.StartDate, params.EndDate, params.CreatedBy,
	)

	chantier, err := scanChantier(row)
	if err != nil {
		return Chantier{}, fmt.Errorf("create chantier: %w", err)
	}
	return chantier, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Chantier, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+chantierColumns+`
		FROM chantiers c
		WHERE c.id = $1 AND c.deleted_at IS NULL
	`, id)

	chantier, err := scanChantier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chantier{}, apperr.NotFound("chantier not found")
		}
		return Chantier{}, fmt.Errorf("get chantier: %w", err)
	}
	return chantier, nil
}

// List returns active chantiers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Chantier, error) {
	query := `
		SELECT DISTINCT` + chantierColumns + `
		FROM chantiers c
		LEFT JOIN chantier_poseurs cp ON cp.chantier_id = c.id
		WHERE c.deleted_at IS NULL`
	args := []interface{}{}

	if filter.ForChargeAffaire != nil {
		args = append(args, *filter.ForChargeAffaire)
		query += fmt.Sprintf(" AND c.charge_affaire_id = $%d", len(args))
	}
	if filter.ForPoseur != nil {
		args = append(args, *filter.ForPoseur)
		query += fmt.Sprintf(" AND cp.poseur_id = $%d", len(args))
	}
	if filter.StatusID != nil {
		args = append(args, *filter.StatusID)
		query += fmt.Sprintf(" AND c.status_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (c.name ILIKE $%d OR c.address_label ILIKE $%d)", len(args), len(args))
	}

	query += " ORDER BY c.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chantiers: %w", err)
	}
	defer rows.Close()

	return collectChantiers(rows)
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (Chantier, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE chantiers SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			client_id = COALESCE($4, client_id),
			category_id = COALESCE($5, category_id),
			type_id = COALESCE($6, type_id),
			status_id = COALESCE($7, status_id),
			start_date = COALESCE($8, start_date),
			end_date = COALESCE($9, end_date),
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING`+chantierReturning,
		id, params.Name, params.Description, params.ClientID, params.CategoryID,
		params.TypeID, params.StatusID, params.StartDate, params.EndDate,
	)

	chantier, err := scanChantier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chantier{}, apperr.NotFound("chantier not found")
		}
		return Chantier{}, fmt.Errorf("update chantier: %w", err)
	}
	return chantier, nil
}

// UpdateAddress stores a confirmed address selection. Coordinates may be nil
// when the label was typed freeform.
func (r *Repository) UpdateAddress(ctx context.Context, id uuid.UUID, label string, lat, lng *float64) (Chantier, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE chantiers SET
			address_label = $2,
			address_lat = $3,
			address_lng = $4,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING`+chantierReturning,
		id, label, lat, lng,
	)

	chantier, err := scanChantier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chantier{}, apperr.NotFound("chantier not found")
		}
		return Chantier{}, fmt.Errorf("update chantier address: %w", err)
	}
	return chantier, nil
}

// SetChargeAffaire reassigns the charge d'affaire; nil clears the assignment.
func (r *Repository) SetChargeAffaire(ctx context.Context, id uuid.UUID, chargeAffaireID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chantiers SET charge_affaire_id = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, chargeAffaireID)
	if err != nil {
		return fmt.Errorf("set charge d'affaire: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("chantier not found")
	}
	return nil
}

// ReplacePoseurs swaps the full poseur assignment set.
func (r *Repository) ReplacePoseurs(ctx context.Context, id uuid.UUID, poseurIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace poseurs: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM chantier_poseurs WHERE chantier_id = $1`, id); err != nil {
		return fmt.Errorf("replace poseurs: %w", err)
	}

	for _, poseurID := range poseurIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chantier_poseurs (chantier_id, poseur_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, poseurID); err != nil {
			return fmt.Errorf("replace poseurs: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListPoseurs returns the poseur IDs assigned to the chantier.
func (r *Repository) ListPoseurs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT poseur_id FROM chantier_poseurs WHERE chantier_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list poseurs: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// Trash
// =============================================================================

// SoftDelete moves the chantier to the trash.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chantiers SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete chantier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("chantier not found")
	}
	return nil
}

// ListTrash returns soft-deleted chantiers, most recently deleted first.
func (r *Repository) ListTrash(ctx context.Context) ([]Chantier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+chantierColumns+`
		FROM chantiers c
		WHERE c.deleted_at IS NOT NULL
		ORDER BY c.deleted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	defer rows.Close()

	return collectChantiers(rows)
}

// Restore brings a trashed chantier back.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID) (Chantier, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE chantiers SET deleted_at = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING`+chantierReturning,
		id,
	)

	chantier, err := scanChantier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chantier{}, apperr.NotFound("chantier not found in trash")
		}
		return Chantier{}, fmt.Errorf("restore chantier: %w", err)
	}
	return chantier, nil
}

// HardDelete removes a trashed chantier permanently. Active rows are never
// hard deleted.
func (r *Repository) HardDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM chantiers WHERE id = $1 AND deleted_at IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("hard delete chantier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("chantier not found in trash")
	}
	return nil
}

// PurgeTrashBefore removes every trashed chantier deleted before the cutoff
// and returns the number of rows purged.
func (r *Repository) PurgeTrashBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM chantiers WHERE deleted_at IS NOT NULL AND deleted_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge trash: %w", err)
	}
	return tag.RowsAffected(), nil
}

// =============================================================================
// Notes
// =============================================================================

func (r *Repository) CreateNote(ctx context.Context, chantierID, authorID uuid.UUID, body string) (Note, error) {
	var note Note
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chantier_notes (chantier_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, chantier_id, author_id, body, created_at
	`, chantierID, authorID, body).Scan(&note.ID, &note.ChantierID, &note.AuthorID, &note.Body, &note.CreatedAt)
	if err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// ListNotes returns the chantier's notes, newest first.
func (r *Repository) ListNotes(ctx context.Context, chantierID uuid.UUID) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, chantier_id, author_id, body, created_at
		FROM chantier_notes
		WHERE chantier_id = $1
		ORDER BY created_at DESC
	`, chantierID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		var note Note
		if err := rows.Scan(&note.ID, &note.ChantierID, &note.AuthorID, &note.Body, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// =============================================================================
// Geocode backfill
// =============================================================================

// ListMissingCoordinates returns active chantiers with a label but no
// coordinates, oldest first, capped at limit.
func (r *Repository) ListMissingCoordinates(ctx context.Context, limit int) ([]Chantier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+chantierColumns+`
		FROM chantiers c
		WHERE c.deleted_at IS NULL
		  AND c.address_label <> ''
		  AND (c.address_lat IS NULL OR c.address_lng IS NULL)
		ORDER BY c.created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing coordinates: %w", err)
	}
	defer rows.Close()

	return collectChantiers(rows)
}

// SetCoordinates stores backfilled coordinates without touching the label.
func (r *Repository) SetCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chantiers SET address_lat = $2, address_lng = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, lat, lng)
	if err != nil {
		return fmt.Errorf("set coordinates: %w", err)
	}
	return nil
}

func collectChantiers(rows pgx.Rows) ([]Chantier, error) {
	items := make([]Chantier, 0)
	for rows.Next() {
		chantier, err := scanChantier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, chantier)
	}
	return items, rows.Err()
}
