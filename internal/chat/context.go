package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"docchat-backend/internal/documents"
	"docchat-backend/internal/extract"
	"docchat-backend/internal/shared/storage/object"
	"docchat-backend/internal/shared/telemetry"
)

// DefaultMaxChars caps the context window when none is configured.
const DefaultMaxChars = 6000

var (
	// ErrSourceMissing means the document's bytes are gone from the object store.
	ErrSourceMissing = errors.New("document source missing")
	// ErrNoReadableText means extraction produced nothing usable.
	ErrNoReadableText = errors.New("no readable text")
)

// ContextWindow is the bounded document text sent to the model.
type ContextWindow struct {
	DocumentID  string
	Text        string
	Truncated   bool
	SourceChars int
}

// Assembler loads a document's text and caps it to MaxChars characters.
// Extracted text is cached beside the document bytes.
type Assembler struct {
	Store     object.ObjectStore
	Extractor extract.TextExtractor
	MaxChars  int
}

// Assemble builds the context window for doc.
func (a *Assembler) Assemble(ctx context.Context, doc documents.Document) (ContextWindow, error) {
	ok, err := a.Store.Exists(ctx, doc.StorageKey)
	if err != nil {
		return ContextWindow{}, fmt.Errorf("check source %s: %w", doc.StorageKey, err)
	}
	if !ok {
		return ContextWindow{}, ErrSourceMissing
	}

	text, cached := a.readCache(ctx, doc)
	if !cached {
		text, err = a.extract(ctx, doc)
		if err != nil {
			return ContextWindow{}, err
		}
	}

	text = strings.ToValidUTF8(text, "")
	if strings.TrimSpace(text) == "" {
		return ContextWindow{}, ErrNoReadableText
	}

	capped, truncated := Truncate(text, a.maxChars())
	return ContextWindow{
		DocumentID:  doc.ID,
		Text:        capped,
		Truncated:   truncated,
		SourceChars: utf8.RuneCountInString(text),
	}, nil
}

func (a *Assembler) readCache(ctx context.Context, doc documents.Document) (string, bool) {
	rc, err := a.Store.Open(ctx, doc.ExtractedTextKey())
	if err != nil {
		if !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("chat.cache_read_failed", map[string]any{"document_id": doc.ID, "error": err})
		}
		return "", false
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		telemetry.Warn("chat.cache_read_failed", map[string]any{"document_id": doc.ID, "error": err})
		return "", false
	}
	return string(raw), true
}

func (a *Assembler) extract(ctx context.Context, doc documents.Document) (string, error) {
	rc, err := a.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return "", ErrSourceMissing
		}
		return "", fmt.Errorf("open source %s: %w", doc.StorageKey, err)
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", doc.StorageKey, err)
	}

	text, err := a.Extractor.Extract(ctx, raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		telemetry.Warn("chat.extract_failed", map[string]any{"document_id": doc.ID, "error": err})
		return "", fmt.Errorf("%w: %v", ErrNoReadableText, err)
	}

	if strings.TrimSpace(text) != "" {
		if _, err := a.Store.SaveWithKey(ctx, doc.ExtractedTextKey(), "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
			telemetry.Warn("chat.cache_write_failed", map[string]any{"document_id": doc.ID, "error": err})
		}
	}
	return text, nil
}

func (a *Assembler) maxChars() int {
	if a.MaxChars <= 0 {
		return DefaultMaxChars
	}
	return a.MaxChars
}

// Truncate returns at most max characters of text, cut on a rune boundary,
// and whether anything was dropped.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	count := 0
	for i := range text {
		if count == max {
			return text[:i], true
		}
		count++
	}
	return text, false
}
