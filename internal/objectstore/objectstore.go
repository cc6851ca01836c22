// Package objectstore is the Object Store Adapter: content-addressed
// upload/download of image and mask bytes, backed by a MinIO/S3-compatible
// bucket. It deliberately exposes two distinct URL spaces — see Internal
// vs External below — so a code path can never hand a browser an address
// it cannot resolve, or hand an in-cluster fetcher one it can.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/zimage/orchestrator/internal/config"
)

type Adapter struct {
	client      *minio.Client
	bucket      string
	externalURL string
}

func NewAdapter(cfg config.ObjectStore) (*Adapter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Adapter{client: client, bucket: cfg.Bucket, externalURL: cfg.ExternalURL}, nil
}

// EnsureBucket creates the bucket if it does not already exist.
func (a *Adapter) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Put uploads data under key with the given content type and returns the
// object's browser-reachable External URL. The internal object key itself
// (not a URL) is what callers persist for later Get calls.
func (a *Adapter) Put(ctx context.Context, key string, data []byte, contentType string) (externalURL string, err error) {
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return a.ExternalURL(key), nil
}

// Get fetches object bytes for key. This is always used in-cluster (the
// replay engine fetching a stored mask, for instance) — never to resolve a
// browser-facing URL.
func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// ExternalURL is the browser-reachable address for key. Only this form
// may be written into an Image or EditHistory row, or returned from an
// HTTP handler.
func (a *Adapter) ExternalURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", a.externalURL, a.bucket, key)
}

// ImageKey builds the deterministic object key for a generated/edited
// image artifact.
func ImageKey(userID, taskID, uuid string) string {
	return fmt.Sprintf("images/%s/%s/%s.png", userID, taskID, uuid)
}

// MaskKey builds the deterministic object key for a processed inpaint
// mask artifact.
func MaskKey(userID, taskID, uuid string) string {
	return fmt.Sprintf("masks/%s/%s/%s.png", userID, taskID, uuid)
}
