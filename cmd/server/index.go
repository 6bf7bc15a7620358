package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/rpggio/sitesearch/internal/bleveindex"
	"github.com/rpggio/sitesearch/internal/config"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/rpggio/sitesearch/internal/typesense"
)

// openIndex builds the configured index backend. The returned func releases it.
func openIndex(cfg config.IndexConfig, logger *slog.Logger) (search.Index, func() error, error) {
	switch cfg.Backend {
	case "typesense":
		client := typesense.New(typesense.Config{
			URL:        cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			QueryBy:    cfg.QueryBy,
			Timeout:    cfg.Timeout,
		}, logger)
		return client, func() error { return nil }, nil
	case "bleve":
		idx, err := bleveindex.Open(cfg.BlevePath, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Seed != "" {
			if err := seedIndex(idx, cfg.Seed); err != nil {
				_ = idx.Close()
				return nil, nil, err
			}
			count, _ := idx.Count()
			logger.Info("seeded bleve index", "path", cfg.Seed, "documents", count)
		}
		return idx, idx.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

func seedIndex(idx *bleveindex.Index, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var entries []search.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	return idx.Put(entries...)
}
