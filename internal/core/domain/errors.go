package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvariantViolated = errors.New("invariant violated")
	ErrDependencyMissing = errors.New("dependency missing")
	ErrStoreConflict     = errors.New("store conflict")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

var (
	ErrUserNotFound = fmt.Errorf("user not found: %w", ErrNotFound)

	ErrClientNotFound  = fmt.Errorf("client not found: %w", ErrDependencyMissing)
	ErrManagerNotFound = fmt.Errorf("manager not found: %w", ErrDependencyMissing)

	ErrClientAlreadyAssigned = fmt.Errorf("client already has a manager assigned: %w", ErrInvariantViolated)
	ErrClientNotAssigned     = fmt.Errorf("client does not have a manager assigned: %w", ErrInvariantViolated)
	ErrNotAClient            = fmt.Errorf("user is not a client: %w", ErrInvariantViolated)
	ErrNotAManager           = fmt.Errorf("user is not a manager: %w", ErrInvariantViolated)

	ErrUserHasRelationships = fmt.Errorf("user still has relationships, remove them first: %w", ErrStoreConflict)
	ErrAssignmentInProgress = fmt.Errorf("another assignment for this client is in progress: %w", ErrStoreConflict)
)

// ValidationError describes a rejected input. It matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Unavailable wraps an unclassified backend failure as ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

var kinds = []error{
	ErrNotFound,
	ErrValidation,
	ErrInvariantViolated,
	ErrDependencyMissing,
	ErrStoreConflict,
	ErrStoreUnavailable,
}

// Classified reports whether err already wraps one of the error kinds.
func Classified(err error) bool {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
