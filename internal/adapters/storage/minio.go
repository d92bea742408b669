package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotStore archives document snapshots as immutable objects. The
// relational row always holds the latest snapshot; the archive keeps history
// for recovery and export.
type SnapshotStore struct {
	client *minio.Client
	bucket string
}

func NewSnapshotStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*SnapshotStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &SnapshotStore{client: client, bucket: bucket}, nil
}

// Put archives one snapshot and returns the object name
func (s *SnapshotStore) Put(ctx context.Context, documentID uint, content []byte) (string, error) {
	objectName := fmt.Sprintf("snapshots/%d/%d.json", documentID, time.Now().UnixNano())
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive snapshot: %w", err)
	}
	return objectName, nil
}
