package publish

import (
	"context"
	"fmt"

	"cloud.google.com/go/iam"
	"cloud.google.com/go/storage"
)

// viewerRoles grant read access to the objects of a bucket
var viewerRoles = []iam.RoleName{
	"roles/storage.legacyBucketReader",
	"roles/storage.objectViewer",
	"roles/viewer",
}

// Bucket is the object store reports are uploaded to
type Bucket interface {
	Name() string
	IsPublic(ctx context.Context) (bool, error)
	Upload(ctx context.Context, key, contentType string, content []byte) error
}

// GCSBucket is a Google Cloud Storage bucket
type GCSBucket struct {
	client *storage.Client
	name   string
}

// NewGCSBucket opens bucket using application default credentials
func NewGCSBucket(ctx context.Context, name string) (*GCSBucket, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSBucket{client: client, name: name}, nil
}

// Name returns the bucket name
func (b *GCSBucket) Name() string {
	return b.name
}

// IsPublic reports whether allUsers hold a viewer role on the bucket
func (b *GCSBucket) IsPublic(ctx context.Context) (bool, error) {
	policy, err := b.client.Bucket(b.name).IAM().Policy(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read IAM policy of bucket %s: %w", b.name, err)
	}
	for _, role := range viewerRoles {
		if policy.HasRole(iam.AllUsers, role) {
			return true, nil
		}
	}
	return false, nil
}

// Upload writes an object
func (b *GCSBucket) Upload(ctx context.Context, key, contentType string, content []byte) error {
	w := b.client.Bucket(b.name).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// Close releases the storage client
func (b *GCSBucket) Close() error {
	return b.client.Close()
}
