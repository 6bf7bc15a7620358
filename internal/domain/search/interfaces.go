package search

import "context"

// Index is a hosted or embedded search index.
type Index interface {
	Search(ctx context.Context, query string) (*IndexResult, error)
	Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error)
}
