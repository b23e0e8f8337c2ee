package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ledger. Specific errors wrap one of these so
// callers can branch with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	ErrEmptyLabel    = fmt.Errorf("%w: empty label", ErrValidation)
	ErrLabelTooLong  = fmt.Errorf("%w: label too long (max %d characters)", ErrValidation, MaxLabelLength)
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidKind   = fmt.Errorf("%w: invalid field kind", ErrValidation)
	ErrInvalidMonth  = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrMissingOwner  = fmt.Errorf("%w: missing owner", ErrValidation)
	ErrMissingField  = fmt.Errorf("%w: missing field id", ErrValidation)
	ErrFieldDeleted  = fmt.Errorf("%w: field is deleted", ErrValidation)
	ErrNotCounter    = fmt.Errorf("%w: field is not a counter", ErrValidation)

	ErrFieldNotFound = fmt.Errorf("field %w", ErrNotFound)
	ErrEntryNotFound = fmt.Errorf("entry %w", ErrNotFound)
)
