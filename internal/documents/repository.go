package documents

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

// Document is stored metadata; the payload lives in object storage under
// FileKey.
type Document struct {
	ID          uuid.UUID `json:"id"`
	ChantierID  uuid.UUID `json:"chantierId"`
	FileName    string    `json:"fileName"`
	FileKey     string    `json:"-"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedBy  uuid.UUID `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, chantier_id, file_name, file_key, content_type, size_bytes, uploaded_by, created_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.ChantierID, &d.FileName, &d.FileKey, &d.ContentType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt)
	return d, err
}

func (r *Repository) Create(ctx context.Context, doc Document) (Document, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO chantier_documents (chantier_id, file_name, file_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+documentColumns,
		doc.ChantierID, doc.FileName, doc.FileKey, doc.ContentType, doc.SizeBytes, doc.UploadedBy,
	)

	created, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM chantier_documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, apperr.NotFound("document not found")
		}
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListByChantier returns the chantier's documents, newest first.
func (r *Repository) ListByChantier(ctx context.Context, chantierID uuid.UUID) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM chantier_documents
		WHERE chantier_id = $1
		ORDER BY created_at DESC
	`, chantierID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	return items, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chantier_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("document not found")
	}
	return nil
}
