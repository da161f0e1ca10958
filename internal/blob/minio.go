package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOUploader stores files in an S3-compatible bucket.
type MinIOUploader struct {
	client *minio.Client
	bucket string
	// publicURL is the externally reachable base for objects,
	// e.g. "https://files.example.com/uploads".
	publicURL string
}

// MinIOConfig carries connection settings for NewMinIOUploader.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// NewMinIOUploader connects to the object store and creates the
// bucket if it does not exist yet.
func NewMinIOUploader(ctx context.Context, cfg MinIOConfig) (*MinIOUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinIOUploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
	}, nil
}

// Upload writes the file under a timestamped key so that repeated
// uploads of the same filename never collide.
func (u *MinIOUploader) Upload(ctx context.Context, f File) (string, error) {
	key := fmt.Sprintf("maintenance/%d_%s", time.Now().UnixMilli(), f.Name)

	opts := minio.PutObjectOptions{ContentType: f.ContentType}
	if _, err := u.client.PutObject(ctx, u.bucket, key, f.Reader, f.Size, opts); err != nil {
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}

	return fmt.Sprintf("%s/%s", u.publicURL, key), nil
}
