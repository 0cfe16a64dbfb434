package catalog

import "errors"

// ErrInvalidContent is returned when the content document cannot be used.
var ErrInvalidContent = errors.New("invalid catalog content")
