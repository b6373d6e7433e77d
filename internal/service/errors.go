// Package service provides business logic services for the Aurelius
// catalogue.
package service

import "errors"

// Common service errors.
var (
	// ErrInternalError masks unexpected infrastructure failures. The
	// underlying cause is logged, never returned to the client.
	ErrInternalError = errors.New("internal server error")
)
