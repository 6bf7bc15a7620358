package mocks

import (
	"context"

	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/stretchr/testify/mock"
)

// InteractionRepository is a mock for repository.InteractionRepository.
type InteractionRepository struct {
	mock.Mock
}

func (m *InteractionRepository) Log(ctx context.Context, in *analytics.Interaction) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *InteractionRepository) List(ctx context.Context, opts analytics.ListOptions) ([]analytics.Interaction, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]analytics.Interaction); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ViewerRepository is a mock for repository.ViewerRepository.
type ViewerRepository struct {
	mock.Mock
}

func (m *ViewerRepository) Add(ctx context.Context, tokenHash, viewerID, description string) error {
	args := m.Called(ctx, tokenHash, viewerID, description)
	return args.Error(0)
}

func (m *ViewerRepository) Resolve(ctx context.Context, tokenHash string) (string, error) {
	args := m.Called(ctx, tokenHash)
	return args.String(0), args.Error(1)
}

// Index is a mock for search.Index.
type Index struct {
	mock.Mock
}

func (m *Index) Search(ctx context.Context, query string) (*search.IndexResult, error) {
	args := m.Called(ctx, query)
	if res, ok := args.Get(0).(*search.IndexResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Index) Suggest(ctx context.Context, query string, limit int) ([]search.Suggestion, error) {
	args := m.Called(ctx, query, limit)
	if list, ok := args.Get(0).([]search.Suggestion); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
