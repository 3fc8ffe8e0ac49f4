package store

import "errors"

var (
	// ErrConflict is returned when a row with the same key already exists.
	ErrConflict = errors.New("already exists")
	// ErrAttachmentLimit is returned when a document already holds its maximum number of files.
	ErrAttachmentLimit = errors.New("attachment limit reached")
)
