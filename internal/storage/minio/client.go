// Package minio keeps the orphaned ledger account journal in object storage.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/oklog/ulid/v2"

	"github.com/nhangara/identity-server/internal/model"
)

const orphanPrefix = "orphans/"

// Internal adapter interface to enable mocking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Wrapper to adapt *minio.Client to minioAPI.
type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

var _ model.OrphanJournal = (*Journal)(nil)

// Journal writes one JSON object per orphaned account. Keys are ULIDs so a
// bucket listing is ordered by record time.
type Journal struct {
	api    minioAPI
	bucket string
}

// NewJournal creates a journal backed by a real *minio.Client instance.
func NewJournal(ctx context.Context, client *minio.Client, bucket string) (*Journal, error) {
	return NewJournalWithAPI(ctx, minioClientWrapper{c: client}, bucket)
}

// NewJournalWithAPI allows injecting a mockable API (used in tests).
func NewJournalWithAPI(ctx context.Context, api minioAPI, bucket string) (*Journal, error) {
	j := &Journal{
		api:    api,
		bucket: bucket,
	}

	if err := j.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return j, nil
}

func (j *Journal) ensureBucketExists(ctx context.Context) error {
	exists, err := j.api.BucketExists(ctx, j.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = j.api.MakeBucket(ctx, j.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Record stores the orphan and returns its object key.
func (j *Journal) Record(ctx context.Context, orphan model.OrphanAccount) (string, error) {
	if orphan.RecordedAt.IsZero() {
		orphan.RecordedAt = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(orphan.RecordedAt), ulid.DefaultEntropy())
	if err != nil {
		return "", fmt.Errorf("failed to generate journal key: %w", err)
	}

	payload, err := json.Marshal(orphan)
	if err != nil {
		return "", fmt.Errorf("failed to encode orphan: %w", err)
	}

	key := orphanPrefix + id.String() + ".json"
	_, err = j.api.PutObject(ctx, j.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return key, nil
}

// Ping checks that the journal bucket is reachable.
func (j *Journal) Ping(ctx context.Context) error {
	if _, err := j.api.BucketExists(ctx, j.bucket); err != nil {
		return fmt.Errorf("failed to reach journal bucket: %w", err)
	}
	return nil
}
