package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/townmarket/townmarket-backend/config"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	require.NoError(t, store.Put(ctx, "b.png", bytes.NewReader([]byte("b")), 1, "image/png"))
	require.NoError(t, store.Put(ctx, "a.png", bytes.NewReader([]byte("a")), 1, "image/png"))
	assert.Equal(t, []string{"a.png", "b.png"}, store.Keys())

	exists, err := store.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "a.png"))
	assert.ErrorIs(t, store.Delete(ctx, "a.png"), ErrObjectNotFound)
	assert.Equal(t, []string{"b.png"}, store.Keys())
}

func TestNew_SelectsDriver(t *testing.T) {
	store, err := New(config.StorageConfig{Driver: "local", LocalDir: t.TempDir()}, config.S3Config{})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = New(config.StorageConfig{Driver: "ftp"}, config.S3Config{})
	assert.Error(t, err)
}
