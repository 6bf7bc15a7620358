package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/sitesearch/internal/domain/filter"
	"github.com/rpggio/sitesearch/internal/domain/search"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, search.ErrUnavailable):
		return &APIError{Code: "CONNECTION_ERROR", Message: "search index unreachable", RecoveryHint: "Retry the search later"}
	case errors.Is(err, search.ErrInvalidInput):
		return &APIError{Code: "INVALID_QUERY", Message: "query is empty or too short", RecoveryHint: "Provide a non-blank query"}
	case errors.Is(err, filter.ErrUnknownVariant):
		return &APIError{Code: "UNKNOWN_VARIANT", Message: "unknown result type", RecoveryHint: "Use all, images, videos or news"}
	default:
		return nil
	}
}

// toolError converts err into the error a tool handler returns.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
