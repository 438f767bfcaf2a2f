package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"leasemail/pkg/domain"
	"leasemail/pkg/store"
)

// ObjectStore accepts archived objects.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// MinioStore implements ObjectStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put uploads an object.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Archive files completed drafts under drafts/<user key>/.
type Archive struct {
	objects ObjectStore
}

func NewArchive(objects ObjectStore) *Archive {
	return &Archive{objects: objects}
}

// Save writes the draft as JSON. The object key is returned.
func (a *Archive) Save(ctx context.Context, identity string, draft domain.Draft) (string, error) {
	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	key := DraftKey(identity, draft)
	if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("archive draft: %w", err)
	}
	return key, nil
}

// DraftKey is drafts/<user key>/<yyyymmddThhmmss>-<draft id>.json.
func DraftKey(identity string, draft domain.Draft) string {
	stamp := draft.CreatedAt.UTC().Format("20060102T150405")
	id := strings.TrimSpace(draft.ID)
	if id == "" {
		id = "draft"
	}
	return path.Join("drafts", store.UserKey(identity), stamp+"-"+id+".json")
}
