package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// presignExpiry controls how long archived export download links stay valid.
const presignExpiry = 15 * time.Minute

// Archiver stores export results in S3-compatible object storage and hands
// out presigned download links.
type Archiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver connects to the object store and makes sure the bucket exists.
func NewArchiver(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Archiver{client: client, bucket: bucket}, nil
}

// Store uploads an export result and returns its object key.
func (a *Archiver) Store(ctx context.Context, contentID string, res *Result) (string, error) {
	key := fmt.Sprintf("%s/%d-%s", contentID, time.Now().UnixMilli(), res.Filename)
	_, err := a.client.PutObject(ctx, a.bucket, key,
		bytes.NewReader(res.Data), int64(len(res.Data)),
		minio.PutObjectOptions{ContentType: res.MimeType})
	if err != nil {
		return "", fmt.Errorf("upload export %s: %w", key, err)
	}
	return key, nil
}

// PresignedURL returns a time-limited download link for an archived export.
func (a *Archiver) PresignedURL(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", "attachment")
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, presignExpiry, params)
	if err != nil {
		return "", fmt.Errorf("presign export %s: %w", key, err)
	}
	return u.String(), nil
}
