package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates missing required project info.
	ErrInvalidInput = errors.New("missing required project info")
)
