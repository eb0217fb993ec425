// Package storage keeps uploaded photo files in a blob store keyed by path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when no blob exists for a key
var ErrNotFound = errors.New("blob not found")

// BlobStore stores opaque files under slash-separated keys
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Options selects and configures a BlobStore
type Options struct {
	Driver   string // disk or s3
	Dir      string
	S3Bucket string
}

// New builds the store named by opts.Driver
func New(ctx context.Context, opts Options) (BlobStore, error) {
	switch opts.Driver {
	case "", "disk":
		return NewDiskStore(opts.Dir)
	case "s3":
		return NewS3StoreFromEnv(ctx, opts.S3Bucket)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
