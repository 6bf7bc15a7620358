package search

import "errors"

var (
	// ErrInvalidInput indicates a blank or too-short query.
	ErrInvalidInput = errors.New("invalid search input")
	// ErrUnavailable indicates the search index could not be reached.
	ErrUnavailable = errors.New("search index unavailable")
)
