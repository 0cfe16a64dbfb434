package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrUnknownSession = errors.New("session key is not registered")
)
