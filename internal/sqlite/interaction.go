package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/repository"
)

var _ repository.InteractionRepository = (*InteractionRepository)(nil)

// InteractionRepository implements repository.InteractionRepository for SQLite
type InteractionRepository struct {
	db *DB
}

// NewInteractionRepository creates a new InteractionRepository
func NewInteractionRepository(db *DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Log inserts an interaction and its ranked results in one transaction
func (r *InteractionRepository) Log(ctx context.Context, in *analytics.Interaction) error {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO search_interactions (
			id, query, viewer_id, device_type, browser_name,
			browser_version, os_name, location, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		in.SearchID,
		in.Query,
		in.ViewerID,
		in.Device.DeviceType,
		in.Device.BrowserName,
		in.Device.BrowserVersion,
		in.Device.OSName,
		in.Device.Location,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to log interaction: %w", err)
	}

	for _, res := range in.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO search_interaction_results (search_id, position, url) VALUES (?, ?, ?)`,
			in.SearchID, res.Position, res.URL,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: duplicate position %d", repository.ErrInvalidInput, res.Position)
			}
			return fmt.Errorf("failed to log interaction result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interaction: %w", err)
	}

	in.CreatedAt = createdAt
	return nil
}

// List returns interactions matching the given filters, newest first
func (r *InteractionRepository) List(ctx context.Context, opts analytics.ListOptions) ([]analytics.Interaction, error) {
	query := `
		SELECT
			id, query, viewer_id, device_type, browser_name,
			browser_version, os_name, location, created_at
		FROM search_interactions
	`

	args := []interface{}{}
	conditions := []string{}

	if opts.ViewerID != nil {
		conditions = append(conditions, "viewer_id = ?")
		args = append(args, *opts.ViewerID)
	}
	if opts.Query != "" {
		conditions = append(conditions, "query = ?")
		args = append(args, opts.Query)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	interactions, err := r.scanInteractions(ctx, query, args)
	if err != nil {
		return nil, err
	}

	// Rows are closed by now; the pool has a single connection.
	for i := range interactions {
		results, err := r.results(ctx, interactions[i].SearchID)
		if err != nil {
			return nil, err
		}
		interactions[i].Results = results
	}

	return interactions, nil
}

func (r *InteractionRepository) scanInteractions(ctx context.Context, query string, args []interface{}) ([]analytics.Interaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var interactions []analytics.Interaction
	for rows.Next() {
		var in analytics.Interaction
		var viewerID sql.NullString
		if err := rows.Scan(
			&in.SearchID,
			&in.Query,
			&viewerID,
			&in.Device.DeviceType,
			&in.Device.BrowserName,
			&in.Device.BrowserVersion,
			&in.Device.OSName,
			&in.Device.Location,
			&in.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		if viewerID.Valid {
			in.ViewerID = &viewerID.String
		}
		interactions = append(interactions, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interaction rows: %w", err)
	}

	return interactions, nil
}

func (r *InteractionRepository) results(ctx context.Context, searchID string) ([]analytics.RankedResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT position, url FROM search_interaction_results WHERE search_id = ? ORDER BY position`,
		searchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction results: %w", err)
	}
	defer rows.Close()

	results := []analytics.RankedResult{}
	for rows.Next() {
		var res analytics.RankedResult
		if err := rows.Scan(&res.Position, &res.URL); err != nil {
			return nil, fmt.Errorf("failed to scan interaction result: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interaction results: %w", err)
	}

	return results, nil
}
