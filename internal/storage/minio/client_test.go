package minio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhangara/identity-server/internal/model"
)

// fakeMinio implements minioAPI for testing without network.
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	madeBucket      string

	putErr     error
	putKey     string
	putPayload []byte
	putOpts    minioLib.PutObjectOptions
}

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}
func (f *fakeMinio) MakeBucket(_ context.Context, bucket string, _ minioLib.MakeBucketOptions) error {
	f.madeBucket = bucket
	return f.makeBucketErr
}
func (f *fakeMinio) PutObject(_ context.Context, _ string, key string, r io.Reader, _ int64, opts minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	if f.putErr != nil {
		return minioLib.UploadInfo{}, f.putErr
	}
	f.putKey = key
	f.putOpts = opts
	f.putPayload, _ = io.ReadAll(r)
	return minioLib.UploadInfo{Key: key}, nil
}

func TestNewJournalWithAPI_BucketExists(t *testing.T) {
	api := &fakeMinio{bucketExists: true}
	j, err := NewJournalWithAPI(context.Background(), api, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", j.bucket)
	assert.Empty(t, api.madeBucket)
}

func TestNewJournalWithAPI_CreateBucket(t *testing.T) {
	api := &fakeMinio{bucketExists: false}
	j, err := NewJournalWithAPI(context.Background(), api, "bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", j.bucket)
	assert.Equal(t, "bucket", api.madeBucket)
}

func TestNewJournalWithAPI_Errors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeMinio
	}{
		{name: "bucket exists error", api: &fakeMinio{bucketExistsErr: errors.New("boom")}},
		{name: "make bucket error", api: &fakeMinio{makeBucketErr: errors.New("fail")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewJournalWithAPI(context.Background(), tt.api, "bucket")
			assert.Nil(t, j)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to ensure bucket exists")
		})
	}
}

func TestJournal_Record(t *testing.T) {
	api := &fakeMinio{}
	j := &Journal{api: api, bucket: "b"}
	orphan := model.OrphanAccount{
		UserID:           uuid.New(),
		AccountID:        "0.0.1001",
		PublicKey:        "302a300506032b6570032100aa",
		SealedPrivateKey: []byte{1, 2, 3},
		Reason:           model.OrphanPersistFailed,
		Cause:            "connection reset",
		RecordedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	key, err := j.Record(context.Background(), orphan)
	require.NoError(t, err)

	assert.Equal(t, api.putKey, key)
	assert.True(t, strings.HasPrefix(key, "orphans/"))
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.Equal(t, "application/json", api.putOpts.ContentType)

	var stored model.OrphanAccount
	require.NoError(t, json.Unmarshal(api.putPayload, &stored))
	assert.Equal(t, orphan, stored)
}

func TestJournal_Record_KeysAreOrderedByTime(t *testing.T) {
	api := &fakeMinio{}
	j := &Journal{api: api, bucket: "b"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := j.Record(context.Background(), model.OrphanAccount{RecordedAt: at})
	require.NoError(t, err)
	second, err := j.Record(context.Background(), model.OrphanAccount{RecordedAt: at.Add(time.Second)})
	require.NoError(t, err)

	assert.Less(t, first, second)
}

func TestJournal_Record_Error(t *testing.T) {
	j := &Journal{api: &fakeMinio{putErr: errors.New("put-fail")}, bucket: "b"}
	key, err := j.Record(context.Background(), model.OrphanAccount{})
	assert.Empty(t, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload object")
}

func TestJournal_Ping(t *testing.T) {
	j := &Journal{api: &fakeMinio{bucketExists: true}, bucket: "b"}
	assert.NoError(t, j.Ping(context.Background()))

	j = &Journal{api: &fakeMinio{bucketExistsErr: errors.New("down")}, bucket: "b"}
	assert.Error(t, j.Ping(context.Background()))
}
