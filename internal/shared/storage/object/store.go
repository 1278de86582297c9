package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no bytes exist under a storage key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Exists(ctx context.Context, storageKey string) (bool, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, storageKey string) error
}

// DerivedKey names a derived artifact stored next to storageKey.
func DerivedKey(storageKey, suffix string) string {
	return storageKey + "." + suffix
}
