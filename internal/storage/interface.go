package storage

import (
	"context"
	"io"
)

// ObjectStorage stores archived job documents.
type ObjectStorage interface {
	// Upload writes an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the public URL of key, or "" when no public URL is configured.
	GetURL(key string) string
}
