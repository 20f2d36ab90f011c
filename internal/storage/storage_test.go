package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	content := []byte("passport scan bytes")
	require.NoError(t, st.Put(ctx, "doc-1", bytes.NewReader(content)))

	r, err := st.Get(ctx, "doc-1")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, content, got)

	// Overwrite replaces the previous blob.
	require.NoError(t, st.Put(ctx, "doc-1", strings.NewReader("v2")))
	r, err = st.Get(ctx, "doc-1")
	require.NoError(t, err)
	got, _ = io.ReadAll(r)
	r.Close()
	assert.Equal(t, "v2", string(got))
}

func TestLocalStoreMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = st.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	require.NoError(t, st.Put(ctx, "doc-1", strings.NewReader("x")))
	require.NoError(t, st.Delete(ctx, "doc-1"))
	require.NoError(t, st.Delete(ctx, "doc-1"))

	_, err = st.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		assert.Error(t, st.Put(ctx, key, strings.NewReader("x")), "key %q", key)
	}
}

func TestAgeStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := NewLocalStore(dir)
	require.NoError(t, err)

	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	st, err := NewAgeStore(inner, identity.Recipient().String(), identity.String(), slog.Default())
	require.NoError(t, err)

	content := []byte("sensitive visa paperwork")
	require.NoError(t, st.Put(ctx, "doc-1", bytes.NewReader(content)))

	// Ciphertext on disk must not contain the plaintext.
	raw, err := os.ReadFile(filepath.Join(dir, "doc-1"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "visa paperwork")

	r, err := st.Get(ctx, "doc-1")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, content, got)
}

func TestAgeStoreWrongIdentity(t *testing.T) {
	ctx := context.Background()
	inner, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	writerKey, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	otherKey, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	writer, err := NewAgeStore(inner, writerKey.Recipient().String(), writerKey.String(), slog.Default())
	require.NoError(t, err)
	require.NoError(t, writer.Put(ctx, "doc-1", strings.NewReader("secret")))

	reader, err := NewAgeStore(inner, otherKey.Recipient().String(), otherKey.String(), slog.Default())
	require.NoError(t, err)

	_, err = reader.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNewAgeStoreInvalidKeys(t *testing.T) {
	inner, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewAgeStore(inner, "not-a-key", "also-not", slog.Default())
	assert.ErrorIs(t, err, ErrInvalidKey)
}
