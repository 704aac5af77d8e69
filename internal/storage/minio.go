package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/iliyamo/storefront/internal/config"
)

// keyPrefix is the folder product images live under.
const keyPrefix = "products/"

// MinioStore stores images in a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore constructs a MinioStore from config.  PublicURL defaults to
// the endpoint itself.
func NewMinioStore(cfg config.MinioConfig) (*MinioStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		public = scheme + cfg.Endpoint
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(public, "/")}, nil
}

// EnsureBucket ensures the configured bucket exists.
func (m *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// Upload decodes dataURL and stores it under products/<uuid>.<ext>.
func (m *MinioStore) Upload(ctx context.Context, dataURL string) (string, error) {
	img, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	key := keyPrefix + uuid.NewString() + "." + img.Ext
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{ContentType: img.ContentType})
	if err != nil {
		return "", err
	}
	return m.urlFor(key), nil
}

// Remove deletes the object behind url.
func (m *MinioStore) Remove(ctx context.Context, url string) error {
	key, ok := m.keyFor(url)
	if !ok {
		return nil
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioStore) urlFor(key string) string {
	return m.publicURL + "/" + m.bucket + "/" + key
}

// keyFor reverses urlFor.  It reports false for URLs outside this bucket.
func (m *MinioStore) keyFor(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, m.publicURL+"/"+m.bucket+"/")
	if !ok || !strings.HasPrefix(key, keyPrefix) {
		return "", false
	}
	return key, true
}
