package analytics

import "context"

// Repository provides persistence operations for search interactions.
type Repository interface {
	Log(ctx context.Context, in *Interaction) error
	List(ctx context.Context, opts ListOptions) ([]Interaction, error)
}
