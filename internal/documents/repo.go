package documents

import "context"

// DocumentsRepo defines persistence operations for document metadata. Every
// read and delete is scoped to the owning user.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	// MostRecentByUser returns the latest upload; ties go to the later insert.
	MostRecentByUser(ctx context.Context, userID string) (Document, error)
	// ListByUser returns documents newest-first. limit 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	DeleteByID(ctx context.Context, userID, documentID string) error
}
