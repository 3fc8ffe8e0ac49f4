package attachments

import (
	"errors"
	"fmt"
)

var (
	// ErrLimitReached is wrapped by LimitError.
	ErrLimitReached = errors.New("attachment limit reached")
	// ErrDeleteFailed wraps every failed server delete.
	ErrDeleteFailed = errors.New("delete attachment failed")
	// ErrPermissionDenied is returned for writes the acting user may not perform.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotSaved is returned when the owning document only exists locally.
	ErrNotSaved = errors.New("document is not saved")
	// ErrNotFound is returned for an attachment id that is not in the current list.
	ErrNotFound = errors.New("attachment not found")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
)

// LimitError is the blocking message shown when a document has no free attachment slot.
type LimitError struct {
	Max int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Maximum attachment limit of %d has been reached.", e.Max)
}

func (e *LimitError) Unwrap() error {
	return ErrLimitReached
}
