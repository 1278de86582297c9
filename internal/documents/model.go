package documents

import (
	"time"

	"docchat-backend/internal/shared/storage/object"
)

// extractedTextSuffix names the cached plain-text rendition stored beside a document.
const extractedTextSuffix = "extracted.txt"

// Document represents an uploaded document owned by a user.
type Document struct {
	ID              string
	UserID          string
	StorageKey      string
	OriginalName    string
	MimeType        string
	SizeBytes       int64
	StorageProvider string
	UploadedAt      time.Time
}

// ExtractedTextKey is the storage key of the cached extracted text.
func (d Document) ExtractedTextKey() string {
	return object.DerivedKey(d.StorageKey, extractedTextSuffix)
}

// DeleteResult reports the outcome of a best-effort purge.
type DeleteResult struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}
