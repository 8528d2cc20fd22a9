package storefront

import (
	"errors"
	"fmt"
)

// ErrTokenNotFound is returned when a landing page carries no bearer token.
var ErrTokenNotFound = errors.New("token not found")

// HTTPError describes a response with an unexpected status code.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
