package storage

import (
	"context"
	"testing"

	"bookinventory/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is the smallest prefix mimetype recognises as image/png
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func offlineStore(t *testing.T) *MinioImageStore {
	t.Helper()
	// minio.New does not dial, so validation paths run without a server
	client, err := minio.New("127.0.0.1:1", &minio.Options{Creds: credentials.NewStaticV4("k", "s", "")})
	require.NoError(t, err)
	return newMinioImageStore(client, config.StorageConfig{Endpoint: "127.0.0.1:1", Bucket: "covers", PublicURL: "https://cdn.example.com/"})
}

func TestUploadRejectsNonImagesBeforeTouchingTheBucket(t *testing.T) {
	s := offlineStore(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "books", nil)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = s.Upload(ctx, "books", []byte("%PDF-1.7 not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = s.Upload(ctx, "books", []byte("plain text"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestKeyForOnlyAcceptsOwnURLs(t *testing.T) {
	s := offlineStore(t)

	key, ok := s.keyFor(s.urlFor("books/a.png"))
	assert.True(t, ok)
	assert.Equal(t, "books/a.png", key)

	_, ok = s.keyFor("https://elsewhere.example.com/covers/books/a.png")
	assert.False(t, ok)

	_, ok = s.keyFor("https://cdn.example.com/covers/")
	assert.False(t, ok)

	assert.NoError(t, s.Delete(context.Background(), "https://elsewhere.example.com/x.png"))
}

func TestDefaultPublicURLFollowsEndpoint(t *testing.T) {
	client, err := minio.New("minio:9000", &minio.Options{Creds: credentials.NewStaticV4("k", "s", "")})
	require.NoError(t, err)
	s := newMinioImageStore(client, config.StorageConfig{Endpoint: "minio:9000", Bucket: "covers"})
	assert.Equal(t, "http://minio:9000/covers/books/x.jpg", s.urlFor("books/x.jpg"))
}

func TestMemoryImageStore(t *testing.T) {
	s := NewMemoryImageStore("mem://images")
	ctx := context.Background()

	url, err := s.Upload(ctx, "books", pngHeader)
	require.NoError(t, err)
	assert.Regexp(t, `^mem://images/books/[0-9a-f-]{36}\.png$`, url)
	assert.True(t, s.Has(url))

	require.NoError(t, s.Delete(ctx, url))
	assert.False(t, s.Has(url))

	_, err = s.Upload(ctx, "books", []byte("hello"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
