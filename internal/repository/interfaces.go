package repository

import (
	"context"

	"github.com/rpggio/sitesearch/internal/domain/analytics"
)

// InteractionRepository manages search interaction persistence
type InteractionRepository interface {
	Log(ctx context.Context, in *analytics.Interaction) error
	List(ctx context.Context, opts analytics.ListOptions) ([]analytics.Interaction, error)
}

// ViewerRepository maps API token hashes to viewer ids
type ViewerRepository interface {
	Add(ctx context.Context, tokenHash, viewerID, description string) error
	Resolve(ctx context.Context, tokenHash string) (string, error)
}
