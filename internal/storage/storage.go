// Package storage persists uploaded media behind a small interface so the
// backend can run against local disk in development and S3 in production.
package storage

import "context"

// Storage writes media blobs and returns a URL or path clients can use.
type Storage interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}
