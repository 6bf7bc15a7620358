package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	defaultSuggestMinLength = 2
	defaultSuggestLimit     = 8
)

// Service forwards queries to the search index.
type Service struct {
	index            Index
	logger           *slog.Logger
	suggestMinLength int
	suggestLimit     int
}

// Option configures a Service.
type Option func(*Service)

// WithSuggestLimits overrides the minimum query length and result cap for suggestions.
func WithSuggestLimits(minLength, limit int) Option {
	return func(s *Service) {
		if minLength > 0 {
			s.suggestMinLength = minLength
		}
		if limit > 0 {
			s.suggestLimit = limit
		}
	}
}

// NewService creates a new search service.
func NewService(index Index, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		index:            index,
		logger:           logger,
		suggestMinLength: defaultSuggestMinLength,
		suggestLimit:     defaultSuggestLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs a full-text query. Any index failure is reported as
// ErrUnavailable so callers can render a connection error and let the user
// retry; nothing is retried here.
func (s *Service) Search(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}

	result, err := s.index.Search(ctx, query)
	if err != nil {
		s.logger.Warn("search failed", "query", query, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	entries := result.Entries
	if entries == nil {
		entries = []Entry{}
	}

	return &Response{
		SearchID:    uuid.NewString(),
		Query:       query,
		Entries:     entries,
		Found:       result.Found,
		TimeTakenMs: result.TimeTakenMs,
	}, nil
}

// Suggest returns completions for an in-progress query.
func (s *Service) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	if utf8.RuneCountInString(query) < s.suggestMinLength {
		return nil, ErrInvalidInput
	}

	suggestions, err := s.index.Suggest(ctx, query, s.suggestLimit)
	if err != nil {
		s.logger.Warn("suggest failed", "query", query, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	return suggestions, nil
}

// MinSuggestLength reports the shortest query that triggers suggestions.
func (s *Service) MinSuggestLength() int {
	return s.suggestMinLength
}
