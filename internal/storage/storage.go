// Package storage provides blob storage for uploaded documents, with
// optional age encryption at rest.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrBlobNotFound is returned when no blob exists for a key.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned when an encryption key cannot be parsed.
	ErrInvalidKey = errors.New("invalid key format")
	// ErrDecryptionFailed is returned when a stored blob cannot be decrypted.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// BlobStore stores document contents by opaque key. Metadata lives in the
// relational store; blobs hold only bytes.
type BlobStore interface {
	// Put stores the blob under key, replacing any existing blob.
	Put(ctx context.Context, key string, r io.Reader) error
	// Get opens the blob stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}
