package order

import (
	"errors"
	"fmt"
)

// ErrNoCredentials means the user has not configured exchange keys yet.
// This is an expected state requiring user action, not a fault.
var ErrNoCredentials = errors.New("no exchange credentials configured")

// ErrCredentialsUnreadable means stored credentials could not be
// decrypted (corrupt record or rotated-away key); the user must re-enter
// them.
var ErrCredentialsUnreadable = errors.New("stored credentials could not be decrypted, please re-enter them")

// ValidationError reports a caller-fixable problem with an order request.
// It is raised before any session or persistence interaction.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a request-validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
