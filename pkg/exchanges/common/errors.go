package common

import (
	"errors"
	"fmt"
)

// APIError carries a venue's error code and message in normalized form.
// Transport failures (timeouts, connection resets) are not APIErrors; they
// surface as plain wrapped errors.
type APIError struct {
	HTTPStatus int
	Code       int    // venue-specific numeric code, e.g. -1013
	Message    string // venue-provided human-readable text
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("exchange error (http %d): %s", e.HTTPStatus, e.Message)
}

// AsAPIError unwraps an APIError from err when present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
