// Package filestore keeps uploaded file bytes in a content-addressed tree.
package filestore

import (
	"context"
	"errors"
	"io"
)

// ErrTooLarge is returned by Put when the payload exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds upload size limit")

// Stored describes one persisted payload.
type Stored struct {
	Digest string
	Size   int64
	Key    string
}

// Store is the byte storage behind attachment rows.
type Store interface {
	Put(ctx context.Context, r io.Reader, maxBytes int64) (Stored, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
