package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, storage_key, original_name, mime_type, size_bytes, storage_provider, uploaded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.StorageKey,
		&doc.OriginalName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageProvider,
		&doc.UploadedAt,
	)
	return doc, err
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    storage_key,
    original_name,
    mime_type,
    size_bytes,
    storage_provider,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.StorageKey,
		doc.OriginalName,
		doc.MimeType,
		doc.SizeBytes,
		storageProvider,
		doc.UploadedAt,
	)
	return err
}

// MostRecentByUser returns the latest document for a user. seq breaks
// uploaded_at ties in favour of the later insert.
func (r *PGRepo) MostRecentByUser(ctx context.Context, userID string) (Document, error) {
	const query = `
SELECT ` + selectColumns + `
FROM documents
WHERE user_id = $1
ORDER BY uploaded_at DESC, seq DESC
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + selectColumns + `
FROM documents
WHERE user_id = $1
ORDER BY uploaded_at DESC, seq DESC
LIMIT NULLIF($2, 0) OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteByID removes one document row owned by userID.
func (r *PGRepo) DeleteByID(ctx context.Context, userID, documentID string) error {
	const query = `DELETE FROM documents WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
