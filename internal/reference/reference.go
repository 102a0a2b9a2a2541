// Package reference serves the lookup tables the chantier forms are built
// from: categories, types and statuses. Reads are open to every role; writes
// are an administration concern.
package reference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chantier_portal_backend/platform/apperr"
)

// Kind names one lookup table.
type Kind string

const (
	KindCategory Kind = "category"
	KindType     Kind = "type"
	KindStatus   Kind = "status"
)

var tables = map[Kind]string{
	KindCategory: "chantier_categories",
	KindType:     "chantier_types",
	KindStatus:   "chantier_statuses",
}

// Item is one lookup row.
type Item struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the rows of one lookup table in display order.
func (r *Repository) List(ctx context.Context, kind Kind) ([]Item, error) {
	table, ok := tables[kind]
	if !ok {
		return nil, apperr.BadRequest("unknown reference kind")
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, label, display_order, created_at
		FROM %s
		ORDER BY display_order ASC, label ASC
	`, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Label, &item.DisplayOrder, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Create inserts a lookup row at the end of the display order.
func (r *Repository) Create(ctx context.Context, kind Kind, label string) (Item, error) {
	table, ok := tables[kind]
	if !ok {
		return Item{}, apperr.BadRequest("unknown reference kind")
	}

	var item Item
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (label, display_order)
		VALUES ($1, (SELECT COALESCE(MAX(display_order), 0) + 1 FROM %s))
		RETURNING id, label, display_order, created_at
	`, table, table), label).Scan(&item.ID, &item.Label, &item.DisplayOrder, &item.CreatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("create %s: %w", table, err)
	}
	return item, nil
}

// Delete removes a lookup row. Chantiers referencing it keep a NULL foreign
// key (ON DELETE SET NULL).
func (r *Repository) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	table, ok := tables[kind]
	if !ok {
		return apperr.BadRequest("unknown reference kind")
	}

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("reference item not found")
	}
	return nil
}
