package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore keeps assets in a Cloud Storage bucket and hands out signed URLs
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	ttl    time.Duration
}

// NewGCSStore connects to the named bucket
func NewGCSStore(ctx context.Context, bucketName string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucketName),
		ttl:    24 * time.Hour,
	}, nil
}

// Close releases the storage client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// List returns object names under prefix
func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: strings.TrimPrefix(prefix, "/")})
	names := []string{}
	for {
		obj, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return names, fmt.Errorf("error iterating objects: %w", err)
		}
		if strings.HasSuffix(obj.Name, "/") {
			continue
		}
		names = append(names, obj.Name)
	}
	return names, nil
}

// Open opens an object for reading
func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	name = strings.TrimPrefix(name, "/")
	reader, err := s.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("Object(%q).NewReader: %w", name, err)
	}
	return reader, nil
}

// Create opens an object writer; the object is committed on Close
func (s *GCSStore) Create(ctx context.Context, name, contentType string) (io.WriteCloser, error) {
	name = strings.TrimPrefix(name, "/")
	if idx := strings.Index(name, "?"); idx != -1 {
		name = name[:idx]
	}
	writer := s.bucket.Object(name).NewWriter(ctx)
	writer.ContentType = contentType
	return writer, nil
}

// URL returns a signed GET URL valid for 24 hours
func (s *GCSStore) URL(_ context.Context, name string) (string, error) {
	signed, err := s.bucket.SignedURL(strings.TrimPrefix(name, "/"), &storage.SignedURLOptions{
		Expires: time.Now().Add(s.ttl),
		Method:  "GET",
	})
	if err != nil {
		return "", fmt.Errorf("error creating signed URL for %s: %w", name, err)
	}
	return signed, nil
}
