package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutExistsDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "uploads/places/a.png"
	data := []byte("png-bytes")
	require.NoError(t, store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png"))

	written, err := os.ReadFile(filepath.Join(store.BaseDir(), "uploads", "places", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, data, written)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, key))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	// Emptied directories are pruned up to the root
	_, err = os.Stat(filepath.Join(store.BaseDir(), "uploads"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_DeleteMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = store.Delete(context.Background(), "uploads/places/missing.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../outside.png", bytes.NewReader(nil), 0, "image/png")
	assert.Error(t, err)
}

func TestNewLocalStorage_RequiresDir(t *testing.T) {
	_, err := NewLocalStorage("")
	assert.Error(t, err)
}
