package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// ObjectStore wraps the Cloud Storage client with the three operations the
// pipeline needs: fetch, move, list.
type ObjectStore struct {
	client *storage.Client
}

// NewObjectStore creates the shared Cloud Storage wrapper.
func NewObjectStore(ctx context.Context) (*ObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &ObjectStore{client: client}, nil
}

// FetchText downloads the full object contents.
func (s *ObjectStore) FetchText(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Move relocates an object within a bucket as copy-then-delete. The store has
// no atomic rename; ordering the delete last means a crash mid-move leaves
// the object at the source path, where a later delivery can reprocess it.
func (s *ObjectStore) Move(ctx context.Context, bucket, src, dst string) error {
	bkt := s.client.Bucket(bucket)
	srcObj := bkt.Object(src)
	if _, err := bkt.Object(dst).CopierFrom(srcObj).Run(ctx); err != nil {
		return fmt.Errorf("failed to copy gs://%s/%s to %s: %w", bucket, src, dst, err)
	}
	if err := srcObj.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s after copy: %w", bucket, src, err)
	}
	return nil
}

// List returns the names of all objects under a prefix.
func (s *ObjectStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", bucket, prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// IsNotFound reports whether err means the addressed object or table does not
// exist. Both the storage sentinel and a raw 404 from the API surface here.
func IsNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
