package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // userId -> documents in insertion order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Document),
	}
}

// Create appends a document for its owner.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.UserID] = append(r.data[doc.UserID], doc)
	return nil
}

// MostRecentByUser returns the latest document for a user.
func (r *MemoryRepo) MostRecentByUser(ctx context.Context, userID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.data[userID]
	if len(docs) == 0 {
		return Document{}, ErrNotFound
	}
	best := docs[0]
	for _, doc := range docs[1:] {
		if !doc.UploadedAt.Before(best.UploadedAt) {
			best = doc
		}
	}
	return best, nil
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	// Copy in reverse insertion order so the stable sort below keeps later
	// inserts ahead on equal timestamps.
	r.mu.RLock()
	userDocs := r.data[userID]
	docs := make([]Document, 0, len(userDocs))
	for i := len(userDocs) - 1; i >= 0; i-- {
		docs = append(docs, userDocs[i])
	}
	r.mu.RUnlock()

	if offset >= len(docs) {
		return []Document{}, nil
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// DeleteByID removes a single document owned by userID.
func (r *MemoryRepo) DeleteByID(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID == documentID {
			r.data[userID] = append(docs[:i:i], docs[i+1:]...)
			if len(r.data[userID]) == 0 {
				delete(r.data, userID)
			}
			return nil
		}
	}
	return ErrNotFound
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
