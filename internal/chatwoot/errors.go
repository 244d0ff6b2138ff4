package chatwoot

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the Chatwoot API.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("chatwoot %s: status %d, body: %s", e.Endpoint, e.Status, e.Body)
}

// IsAPIError reports whether err wraps an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
