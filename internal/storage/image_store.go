// Package storage keeps book cover images in a MinIO/S3 compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"bookinventory/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrInvalidImage marks uploads whose content is not a supported image
var ErrInvalidImage = errors.New("invalid image")

// ImageStore stores images and returns their public URL
type ImageStore interface {
	Upload(ctx context.Context, folder string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// MinioImageStore implements ImageStore on MinIO/S3 compatible storage
type MinioImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioImageStore connects to MinIO and ensures the bucket exists
func NewMinioImageStore(cfg config.StorageConfig) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return newMinioImageStore(client, cfg), nil
}

func newMinioImageStore(client *minio.Client, cfg config.StorageConfig) *MinioImageStore {
	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}
	return &MinioImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Upload sniffs the content type of data and stores it under folder with a
// random name. Non-image content fails with ErrInvalidImage.
func (s *MinioImageStore) Upload(ctx context.Context, folder string, data []byte) (string, error) {
	mime, err := sniffImage(data)
	if err != nil {
		return "", err
	}

	key := path.Join(folder, uuid.NewString()+mime.Extension())
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: mime.String()})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.urlFor(key), nil
}

// Delete removes the object behind url. URLs outside this bucket are ignored.
func (s *MinioImageStore) Delete(ctx context.Context, url string) error {
	key, ok := s.keyFor(url)
	if !ok {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *MinioImageStore) urlFor(key string) string {
	return s.publicURL + "/" + s.bucket + "/" + key
}

func (s *MinioImageStore) keyFor(url string) (string, bool) {
	prefix := s.publicURL + "/" + s.bucket + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func sniffImage(data []byte) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrInvalidImage, mime.String())
	}
	return mime, nil
}
