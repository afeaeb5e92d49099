package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	n, err := store.Put(ctx, "user_1/dataset_2/model.uvl", strings.NewReader("features\n  A"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	content, err := store.Get(ctx, "user_1/dataset_2/model.uvl")
	require.NoError(t, err)
	assert.Equal(t, "features\n  A", string(content))
}

func TestFilesystemStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "a.uvl", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "a.uvl", strings.NewReader("second"))
	require.NoError(t, err)

	content, err := store.Get(ctx, "a.uvl")
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestFilesystemStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "d/a.uvl", strings.NewReader("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "d"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.uvl", entries[0].Name())
}

func TestFilesystemStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing.uvl")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "missing.uvl"), ErrNotFound)
}

func TestFilesystemStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "a.uvl", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "a.uvl"))

	_, err = store.Get(ctx, "a.uvl")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../escape.uvl", "a/../../b", "a\\b", "."} {
		t.Run(key, func(t *testing.T) {
			_, err := store.Put(ctx, key, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}
