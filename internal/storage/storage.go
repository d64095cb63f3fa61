// Package storage defines the object store that holds the per-ticker
// statement parquet files.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

const ParquetContentType = "application/vnd.apache.parquet"

// Metadata keys written alongside each statement file.
const (
	MetaTicker = "ticker"
	MetaRunID  = "run-id"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

type Reader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

type Writer interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type Lister interface {
	// List returns every object below prefix. Keys are usable with Get and
	// Delete as returned.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

type ObjectStore interface {
	Reader
	Writer
	Lister
}
