// Package storage contains the durable blob store for uploaded audio.
package storage

import (
	"context"
	"io"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
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
}

// BlobStore persists original audio files under stable keys. A write that
// fails must not leave a partially-written object behind a key any record
// references; callers only record the key after Put returns successfully.
type BlobStore interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL for playback without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
