package minio

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage provides an S3-compatible storage backend using MinIO. Uploads,
// converted outputs and feedback records become objects under subdirectory
// prefixes in a single bucket.
type Storage struct {
	client     *minio.Client
	bucketName string
}

// NewStorage connects to the given MinIO server, creating the bucket if it
// does not exist yet.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Save uploads src under the subdirectory prefix and returns the object
// path within the bucket.
func (s *Storage) Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error) {
	objectName := path.Join(subdir, filename)

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, src, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return objectName, nil
}

// Load retrieves the named object and returns a reader. GetObject alone
// defers existence errors to the first read, so the object is stat'd first
// to make a missing file fail here rather than mid-stream.
func (s *Storage) Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error) {
	objectName := path.Join(subdir, filename)

	if _, err := s.client.StatObject(ctx, s.bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}

	return obj, nil
}

// Delete removes the named object from the bucket.
func (s *Storage) Delete(ctx context.Context, subdir, filename string) error {
	return s.client.RemoveObject(ctx, s.bucketName, path.Join(subdir, filename), minio.RemoveObjectOptions{})
}
