// Package storage holds the content stores behind share records. Keys are
// opaque storage locations generated by the service layer.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned by Get when no content exists under the key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrBucketNotFound is returned when the configured bucket is gone.
	ErrBucketNotFound = errors.New("bucket not found")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 if unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the content store used by uploads, downloads and the sweeper.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Put writes the content read from r under key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get opens the content under key. Callers must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes the content under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether content is present under key.
	Exists(ctx context.Context, key string) (bool, error)
}
