// Package storage abstracts where seed datasets live so the seeder can
// read the same CSV files from a local directory or an object store.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// DatasetStore serves the CSV files the seeder loads into Postgres.
type DatasetStore interface {
	// Get opens one dataset object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List enumerates dataset objects under a key prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Put uploads a dataset, used when provisioning a fresh bucket.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectInfo, error)
}
