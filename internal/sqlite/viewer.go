package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/sitesearch/internal/repository"
)

var _ repository.ViewerRepository = (*ViewerRepository)(nil)

// ViewerRepository implements repository.ViewerRepository for SQLite
type ViewerRepository struct {
	db *DB
}

// NewViewerRepository creates a new ViewerRepository
func NewViewerRepository(db *DB) *ViewerRepository {
	return &ViewerRepository{db: db}
}

// Add registers a token hash for a viewer
func (r *ViewerRepository) Add(ctx context.Context, tokenHash, viewerID, description string) error {
	if tokenHash == "" || viewerID == "" {
		return repository.ErrInvalidInput
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO viewer_keys (key_hash, viewer_id, created_at, description) VALUES (?, ?, ?, ?)`,
		tokenHash, viewerID, time.Now(), description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to add viewer key: %w", err)
	}
	return nil
}

// Resolve returns the viewer id owning a token hash and marks the key used
func (r *ViewerRepository) Resolve(ctx context.Context, tokenHash string) (string, error) {
	var viewerID string
	err := r.db.QueryRowContext(ctx,
		`SELECT viewer_id FROM viewer_keys WHERE key_hash = ?`, tokenHash,
	).Scan(&viewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve viewer key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE viewer_keys SET last_used = ? WHERE key_hash = ?`, time.Now(), tokenHash,
	); err != nil {
		return "", fmt.Errorf("failed to touch viewer key: %w", err)
	}

	return viewerID, nil
}
