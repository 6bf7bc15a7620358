package suggest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rpggio/sitesearch/internal/domain/search"
)

// ErrorMessage is shown in place of suggestions when a fetch fails.
const ErrorMessage = "Failed to fetch suggestions"

const (
	defaultDebounce  = 250 * time.Millisecond
	defaultMinLength = 2
)

// Source fetches completions for a query.
type Source interface {
	Suggest(ctx context.Context, query string) ([]search.Suggestion, error)
}

// Status is the fetcher's position in its idle/pending/settled cycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
)

// State is a snapshot of the fetcher. Suggestions and Error always belong to
// SettledQuery, which lags Query while the fetcher is pending.
type State struct {
	Version      uint64              `json:"version"`
	Query        string              `json:"query"`
	SettledQuery string              `json:"settledQuery,omitempty"`
	Status       Status              `json:"status"`
	Suggestions  []search.Suggestion `json:"suggestions"`
	Error        string              `json:"error,omitempty"`
}

// Stale reports whether the displayed suggestions lag the latest input.
func (s State) Stale() bool {
	return s.Status == StatusPending
}

func (s State) clone() State {
	s.Suggestions = append([]search.Suggestion{}, s.Suggestions...)
	return s
}

// Fetcher coalesces rapid query input into debounced suggestion fetches.
// Only the response for the most recent coalesced query is ever applied.
type Fetcher struct {
	source    Source
	debounce  time.Duration
	minLength int
	timeout   time.Duration
	logger    *slog.Logger
	onChange  func(State)

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	state  State
	closed bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithDebounce sets the quiet period before a fetch is triggered.
func WithDebounce(d time.Duration) Option {
	return func(f *Fetcher) { f.debounce = d }
}

// WithMinLength sets the shortest query, in runes, that triggers a fetch.
func WithMinLength(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.minLength = n
		}
	}
}

// WithTimeout bounds each fetch. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// OnChange registers a callback invoked after every state change. Callbacks
// may arrive concurrently; use State.Version to drop out-of-order snapshots.
// The callback must not call back into the Fetcher.
func OnChange(fn func(State)) Option {
	return func(f *Fetcher) { f.onChange = fn }
}

// NewFetcher creates an idle fetcher.
func NewFetcher(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:    source,
		debounce:  defaultDebounce,
		minLength: defaultMinLength,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:     State{Status: StatusIdle, Suggestions: []search.Suggestion{}},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Input records the latest query text. Short queries clear suggestions
// immediately; longer ones restart the debounce window.
func (f *Fetcher) Input(query string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}

	f.gen++
	f.stopLocked()

	if utf8.RuneCountInString(query) < f.minLength {
		f.state = State{
			Version:     f.state.Version,
			Query:       query,
			Status:      StatusIdle,
			Suggestions: []search.Suggestion{},
		}
	} else {
		f.state.Query = query
		f.state.Status = StatusPending
		gen := f.gen
		f.timer = time.AfterFunc(f.debounce, func() { f.fetch(gen, query) })
	}
	f.state.Version++
	snapshot := f.state.clone()
	f.mu.Unlock()

	f.notify(snapshot)
}

// State returns the current snapshot.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// Close stops pending work. Later input is ignored.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.gen++
	f.stopLocked()
}

func (f *Fetcher) fetch(gen uint64, query string) {
	f.mu.Lock()
	if gen != f.gen || f.closed {
		f.mu.Unlock()
		return
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if f.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), f.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	f.cancel = cancel
	f.mu.Unlock()

	suggestions, err := f.source.Suggest(ctx, query)
	cancel()

	f.mu.Lock()
	if gen != f.gen || f.closed {
		f.mu.Unlock()
		f.logger.Debug("discarding superseded suggestions", "query", query)
		return
	}
	f.cancel = nil
	next := State{
		Version:      f.state.Version + 1,
		Query:        query,
		SettledQuery: query,
		Status:       StatusSettled,
		Suggestions:  []search.Suggestion{},
	}
	if err != nil {
		f.logger.Warn("suggestion fetch failed", "query", query, "error", err)
		next.Error = ErrorMessage
	} else if suggestions != nil {
		next.Suggestions = suggestions
	}
	f.state = next
	snapshot := f.state.clone()
	f.mu.Unlock()

	f.notify(snapshot)
}

func (f *Fetcher) stopLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

func (f *Fetcher) notify(state State) {
	if f.onChange != nil {
		f.onChange(state)
	}
}
