package store

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("entity not found")

	// ErrEntityExists is returned when an Insert hits an existing key.
	ErrEntityExists = errors.New("entity already exists")

	// ErrPreconditionFailed is returned when a conditional write's
	// ifMatch token no longer matches the stored entity.
	ErrPreconditionFailed = errors.New("precondition failed: entity was modified")

	// ErrUnavailable wraps transient backend failures; callers may retry.
	ErrUnavailable = errors.New("store unavailable")
)

// IsConflict reports whether err is a conflict-class failure: a lost
// optimistic-concurrency race or a duplicate-key insert.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPreconditionFailed) || errors.Is(err, ErrEntityExists)
}
