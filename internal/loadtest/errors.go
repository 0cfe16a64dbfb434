package loadtest

import "errors"

// Sentinel errors returned by Run.
var (
	ErrInvalidConfig = errors.New("invalid load test config")
	ErrUnhealthy     = errors.New("service health check failed")
	ErrMismatch      = errors.New("conversion value mismatch")
	ErrProtected     = errors.New("protected script check failed")
)
