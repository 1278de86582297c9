package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/storage/object"
	"docchat-backend/internal/shared/telemetry"
)

// DefaultMaxBytes is the upload ceiling used when none is configured.
const DefaultMaxBytes = 10 << 20

const pdfMimeType = "application/pdf"

// Service owns document metadata and the bytes behind it.
type Service struct {
	Store           object.ObjectStore
	Repo            DocumentsRepo
	StorageProvider string
	MaxBytes        int64
	Now             func() time.Time
}

// Save validates the payload, stores its bytes and records the document.
func (s *Service) Save(ctx context.Context, userID, originalName string, r io.Reader) (Document, error) {
	originalName = strings.TrimSpace(originalName)
	if strings.TrimSpace(userID) == "" || originalName == "" || r == nil {
		return Document{}, ErrInvalidInput
	}

	limit := s.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return Document{}, ErrTooLarge
		}
		return Document{}, fmt.Errorf("%w: read upload: %v", ErrInvalidInput, err)
	}
	if int64(len(data)) > limit {
		return Document{}, ErrTooLarge
	}
	if http.DetectContentType(data) != pdfMimeType {
		return Document{}, ErrUnsupportedFormat
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, originalName, bytes.NewReader(data))
	if err != nil {
		telemetry.Error("documents.save_failed", map[string]any{"user_id": userID, "stage": "object", "error": err})
		return Document{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userID,
		StorageKey:      storageKey,
		OriginalName:    originalName,
		MimeType:        mimeType,
		SizeBytes:       size,
		StorageProvider: s.provider(),
		UploadedAt:      s.now(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		telemetry.Error("documents.save_failed", map[string]any{"user_id": userID, "stage": "metadata", "error": err})
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("documents.orphan_bytes", map[string]any{"storage_key": storageKey, "error": delErr})
		}
		return Document{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	metrics.IncDocumentsUploaded()
	return doc, nil
}

// MostRecentFor returns the caller's latest document.
func (s *Service) MostRecentFor(ctx context.Context, userID string) (Document, error) {
	if strings.TrimSpace(userID) == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.MostRecentByUser(ctx, userID)
}

// List returns the caller's documents newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Open streams the bytes of doc.
func (s *Service) Open(ctx context.Context, doc Document) (io.ReadCloser, error) {
	return s.Store.Open(ctx, doc.StorageKey)
}

// DeleteAllFor removes every document owned by userID. Items whose bytes
// cannot be removed keep their metadata and are counted as failed; the
// remaining items are still processed.
func (s *Service) DeleteAllFor(ctx context.Context, userID string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, ErrInvalidInput
	}

	docs, err := s.Repo.ListByUser(ctx, userID, 0, 0)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("list documents: %w", err)
	}

	var result DeleteResult
	for _, doc := range docs {
		if err := s.deleteOne(ctx, doc); err != nil {
			result.Failed++
			telemetry.Warn("documents.delete_item_failed", map[string]any{
				"user_id":     userID,
				"document_id": doc.ID,
				"storage_key": doc.StorageKey,
				"error":       err,
			})
			continue
		}
		result.Deleted++
	}

	metrics.AddDocumentsDeleted(result.Deleted, result.Failed)
	return result, nil
}

func (s *Service) deleteOne(ctx context.Context, doc Document) error {
	if err := s.Store.Delete(ctx, doc.ExtractedTextKey()); err != nil {
		return fmt.Errorf("delete extracted text: %w", err)
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		return fmt.Errorf("delete bytes: %w", err)
	}
	if err := s.Repo.DeleteByID(ctx, doc.UserID, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxBytes
}

func (s *Service) provider() string {
	if s.StorageProvider == "" {
		return "local"
	}
	return s.StorageProvider
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
