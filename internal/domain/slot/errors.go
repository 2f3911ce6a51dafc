package slot

import "errors"

var (
	// ErrSlotNotFound indicates the slot doesn't exist.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrInvalidInput indicates invalid slot input.
	ErrInvalidInput = errors.New("invalid slot input")
	// ErrNoFields indicates an update request carried no recognized fields.
	ErrNoFields = errors.New("no recognized fields provided to update")
)
