package documents

import (
	"path"
	"time"
)

// FileResponse is the outward-facing representation of a document.
type FileResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

func toResponse(doc Document) FileResponse {
	return FileResponse{
		ID:           doc.ID,
		Filename:     path.Base(doc.StorageKey),
		OriginalName: doc.OriginalName,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.SizeBytes,
		UploadedAt:   doc.UploadedAt,
	}
}
