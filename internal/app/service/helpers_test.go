package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/townmarket/townmarket-backend/internal/storage"
)

type testFile struct {
	name string
	data []byte
}

func jpegFile(name string, size int) testFile {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	return testFile{name: name, data: data}
}

func pngFile(name string, size int) testFile {
	data := make([]byte, size)
	copy(data, []byte("\x89PNG\r\n\x1a\n"))
	return testFile{name: name, data: data}
}

func textFile(name string, size int) testFile {
	return testFile{name: name, data: bytes.Repeat([]byte("a"), size)}
}

// fileHeaders round-trips the files through a multipart body, the same way gin receives them.
func fileHeaders(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()
	if len(files) == 0 {
		return nil
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile("images[]", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["images[]"]
}

// flakyStore wraps MemoryStorage with injectable failures.
type flakyStore struct {
	*storage.MemoryStorage
	failPutOn   int // 1-based Put call that fails, 0 for never
	failDeletes bool
	puts        int
	deletes     int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStorage: storage.NewMemoryStorage()}
}

func (s *flakyStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	s.puts++
	if s.failPutOn > 0 && s.puts == s.failPutOn {
		return errors.New("bucket unavailable")
	}
	return s.MemoryStorage.Put(ctx, key, r, size, contentType)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.deletes++
	if s.failDeletes {
		return errors.New("permission denied")
	}
	return s.MemoryStorage.Delete(ctx, key)
}
