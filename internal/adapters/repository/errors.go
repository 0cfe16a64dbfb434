package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrClosed = errors.New("ledger closed")
)
