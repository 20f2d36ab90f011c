package models

import (
	"time"
)

// Document is metadata for a file uploaded for a client. The bytes
// themselves live in the blob store under BlobKey, encrypted at rest.
type Document struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	UploadedBy  string    `json:"uploaded_by"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	BlobKey     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
