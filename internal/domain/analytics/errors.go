package analytics

import "errors"

// ErrInvalidInput indicates an interaction without a search id.
var ErrInvalidInput = errors.New("invalid interaction input")
