package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat is returned for payloads that are not PDF.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrTooLarge          = errors.New("document too large")
	// ErrStorageFailure wraps any I/O failure while persisting an upload.
	ErrStorageFailure = errors.New("storage failure")
)
