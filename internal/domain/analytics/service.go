package analytics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

const defaultWriteTimeout = 5 * time.Second

// Service handles the search interaction log.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewService creates a new analytics service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger, timeout: defaultWriteTimeout}
}

// LogInteraction writes an interaction in the background. It returns
// immediately; failures are logged and never reach the caller. The
// interaction is timestamped at the call, not at the write.
func (s *Service) LogInteraction(ctx context.Context, in Interaction) {
	ctx = context.WithoutCancel(ctx)
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if err := s.Record(ctx, &in); err != nil {
			s.logger.Warn("failed to log search interaction", "search_id", in.SearchID, "error", err)
		}
	}()
}

// Record writes an interaction synchronously, stamping the current time if missing.
func (s *Service) Record(ctx context.Context, in *Interaction) error {
	if in == nil || in.SearchID == "" {
		return ErrInvalidInput
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, in); err != nil {
		return fmt.Errorf("logging interaction: %w", err)
	}
	return nil
}

// ListInteractions lists interactions, newest first.
func (s *Service) ListInteractions(ctx context.Context, opts ListOptions) ([]Interaction, error) {
	return s.repo.List(ctx, opts)
}

// Wait blocks until background writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// RankedResults numbers urls in display order starting at 1.
func RankedResults(urls []string) []RankedResult {
	return lo.Map(urls, func(url string, i int) RankedResult {
		return RankedResult{Position: i + 1, URL: url}
	})
}
