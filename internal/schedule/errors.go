package schedule

import "errors"

var (
	// ErrInvalidConfig indicates a template config failed strict validation.
	ErrInvalidConfig = errors.New("invalid template config")

	// ErrInvalidSlot indicates a slot is missing a field storage requires.
	ErrInvalidSlot = errors.New("invalid slot")
)
