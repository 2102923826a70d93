package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for profile operations.
var (
	// ErrForbidden indicates the requester is neither the target user nor an admin.
	// HTTP Status: 403 Forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrUserNotFound indicates the target user does not exist or is not active.
	// HTTP Status: 404 Not Found (401 in legacy mode)
	ErrUserNotFound = errors.New("user not found or not active")

	// ErrProfileExists indicates the target user already has a linked profile.
	// HTTP Status: 400 Bad Request
	ErrProfileExists = errors.New("user already has a profile")

	// ErrUploadFailed indicates the avatar could not be stored.
	// The underlying cause is logged, never returned to the client.
	// HTTP Status: 500 Internal Server Error
	ErrUploadFailed = errors.New("avatar upload failed")

	// ErrProfileConflict indicates the insert lost a race against another
	// creation for the same user (unique violation on user_id).
	// HTTP Status: 409 Conflict
	ErrProfileConflict = errors.New("profile already exists for user")
)

// ValidationError reports the first input field that failed validation.
// HTTP Status: 422 Unprocessable Entity
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
