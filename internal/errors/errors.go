// Package errors defines the sentinel errors shared across commitline.
//
// Callers categorize failures with errors.Is(). Every rejection listed here
// is raised before any state is written, so the caller can correct the input
// and retry.
//
// This package MUST NOT import other internal packages.
package errors

import "errors"

var (
	// ErrInvalidTransition indicates a status change that the state machine
	// does not permit from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotificationPending indicates an at-risk commitment was abandoned
	// while its stakeholder notification is still outstanding.
	ErrNotificationPending = errors.New("stakeholder notification pending")

	// ErrConfirmationRequired indicates a destructive operation on a
	// notification task was attempted without explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrValidation indicates a malformed entity reached the core.
	ErrValidation = errors.New("validation failed")

	// ErrNotificationPinned indicates a reorder that would move a pinned
	// notification task or displace it from the first position.
	ErrNotificationPinned = errors.New("notification task is pinned")

	// ErrNotFound indicates a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates a scoring parameter outside its allowed range.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// Is reports whether any error in err's chain matches target.
// Re-exported so callers importing this package under an alias do not also
// need the standard library errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
