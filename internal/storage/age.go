package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"filippo.io/age"
)

// AgeStore wraps another BlobStore with age encryption at rest. Blobs are
// encrypted to an X25519 recipient on Put and decrypted with the matching
// identity on Get, so a leaked storage volume exposes no document
// contents.
type AgeStore struct {
	inner     BlobStore
	recipient *age.X25519Recipient
	identity  *age.X25519Identity
	logger    *slog.Logger
}

// NewAgeStore parses the Bech32-encoded key pair and wraps inner. Both
// halves are required: the API server both stores and serves documents.
func NewAgeStore(inner BlobStore, recipientKey, identityKey string, logger *slog.Logger) (*AgeStore, error) {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidKey, err)
	}
	identity, err := age.ParseX25519Identity(identityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: identity: %v", ErrInvalidKey, err)
	}

	return &AgeStore{
		inner:     inner,
		recipient: recipient,
		identity:  identity,
		logger:    logger.With("component", "storage"),
	}, nil
}

var _ BlobStore = (*AgeStore)(nil)

// Put encrypts the blob and stores the ciphertext in the inner store.
func (s *AgeStore) Put(ctx context.Context, key string, r io.Reader) error {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.recipient)
	if err != nil {
		s.logger.Error("failed to create encryptor", "error", err)
		return fmt.Errorf("encrypting blob: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("encrypting blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encrypting blob: %w", err)
	}

	return s.inner.Put(ctx, key, &buf)
}

// Get opens and decrypts the blob stored under key.
func (s *AgeStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	ciphertext, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	plaintext, err := age.Decrypt(ciphertext, s.identity)
	if err != nil {
		ciphertext.Close()
		s.logger.Error("failed to decrypt blob", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return &decryptReader{Reader: plaintext, closer: ciphertext}, nil
}

// Delete removes the underlying ciphertext blob.
func (s *AgeStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// decryptReader closes the underlying ciphertext stream when the
// decrypted stream is closed.
type decryptReader struct {
	io.Reader
	closer io.Closer
}

func (r *decryptReader) Close() error {
	return r.closer.Close()
}
