package signup

import "errors"

var (
	// ErrSlotFull indicates the slot has no spots remaining, or is held.
	ErrSlotFull = errors.New("slot is already full")
	// ErrConflict indicates the slot changed under a signup; the attempt
	// was compensated and the caller may retry against the fresh state.
	ErrConflict = errors.New("slot was just taken")
	// ErrVolunteerNotFound indicates the volunteer signup doesn't exist.
	ErrVolunteerNotFound = errors.New("volunteer signup not found")
	// ErrInvalidInput indicates missing volunteer name or email.
	ErrInvalidInput = errors.New("missing volunteer name or email")
)
