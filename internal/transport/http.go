package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/filter"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/rpggio/sitesearch/internal/domain/suggest"
	"github.com/samber/lo"
)

// SearchService is the search boundary used by the HTTP handlers.
type SearchService interface {
	Search(ctx context.Context, query string) (*search.Response, error)
	Suggest(ctx context.Context, query string) ([]search.Suggestion, error)
}

// AnalyticsService records and lists search interactions.
type AnalyticsService interface {
	LogInteraction(ctx context.Context, in analytics.Interaction)
	ListInteractions(ctx context.Context, opts analytics.ListOptions) ([]analytics.Interaction, error)
}

// Config wires the HTTP server.
type Config struct {
	Search    SearchService
	Analytics AnalyticsService
	Logger    *slog.Logger
	// Auth is applied to every route but /health when set.
	Auth func(http.Handler) http.Handler
	// LocationFallback fills the device location outside production.
	LocationFallback string
	Production       bool
	// Suggest configures the per-connection fetchers of /suggest/stream.
	SuggestDebounce  time.Duration
	SuggestMinLength int
	// SuggestTimeout bounds each streamed fetch. Zero means unbounded.
	SuggestTimeout   time.Duration
	Now              func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// SearchResponse is a search result after filtering.
type SearchResponse struct {
	SearchID         string         `json:"searchId"`
	Query            string         `json:"query"`
	Entries          []search.Entry `json:"entries"`
	Found            int            `json:"found"`
	TimeTakenMs      int64          `json:"timeTakenMs"`
	Filters          filter.Record  `json:"filters"`
	HasActiveFilters bool           `json:"hasActiveFilters"`
}

// SuggestResponse lists completions for a query.
type SuggestResponse struct {
	Query       string              `json:"query"`
	Suggestions []search.Suggestion `json:"suggestions"`
	Error       string              `json:"error,omitempty"`
}

// FacetsResponse describes every variant's facets and defaults.
type FacetsResponse struct {
	Variants map[filter.Variant]VariantFacets `json:"variants"`
}

// VariantFacets is the catalog of one variant.
type VariantFacets struct {
	Values   map[string][]string `json:"values"`
	Defaults map[string]string   `json:"defaults"`
}

// NewServer creates an HTTP router with middleware.
func NewServer(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	srv := &Server{cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}
		r.Get("/facets", srv.handleFacets)
		r.Get("/search", srv.handleSearch)
		r.Get("/suggest", srv.handleSuggest)
		r.Get("/suggest/stream", srv.handleSuggestStream)
		r.Get("/interactions", srv.handleInteractions)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleFacets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Facets())
}

// Facets returns the catalog of every variant.
func Facets() FacetsResponse {
	resp := FacetsResponse{Variants: make(map[filter.Variant]VariantFacets, len(filter.Variants))}
	for _, v := range filter.Variants {
		resp.Variants[v] = VariantFacets{Values: filter.Catalog(v), Defaults: filter.Defaults(v)}
	}
	return resp
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.cfg.Search.Search(r.Context(), params.Query)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "query is required")
		case errors.Is(err, search.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "connection error")
		default:
			s.logger.Error("search failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	store := params.store()
	generic := store.Generic()
	entries := filter.Apply(result.Entries, generic, s.cfg.Now())

	if s.cfg.Analytics != nil {
		s.cfg.Analytics.LogInteraction(r.Context(), s.interaction(r, result, entries))
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		SearchID:         result.SearchID,
		Query:            result.Query,
		Entries:          entries,
		Found:            result.Found,
		TimeTakenMs:      result.TimeTakenMs,
		Filters:          generic,
		HasActiveFilters: store.HasActiveFilters(),
	})
}

// interaction describes the results as they were shown.
func (s *Server) interaction(r *http.Request, result *search.Response, shown []search.Entry) analytics.Interaction {
	in := analytics.Interaction{
		SearchID: result.SearchID,
		Query:    result.Query,
		Results:  analytics.RankedResults(lo.Map(shown, func(e search.Entry, _ int) string { return e.URL })),
		Device:   analytics.DeviceFromHeaders(r.Header, s.cfg.LocationFallback, s.cfg.Production),
	}
	if viewerID, ok := ViewerFromContext(r.Context()); ok {
		in.ViewerID = &viewerID
	}
	return in
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	suggestions, err := s.cfg.Search.Suggest(r.Context(), query)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuggestResponse{Query: query, Suggestions: suggestions})
	case errors.Is(err, search.ErrInvalidInput):
		// Too short to complete.
		writeJSON(w, http.StatusOK, SuggestResponse{Query: query, Suggestions: []search.Suggestion{}})
	default:
		writeJSON(w, http.StatusServiceUnavailable, SuggestResponse{
			Query:       query,
			Suggestions: []search.Suggestion{},
			Error:       suggest.ErrorMessage,
		})
	}
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Analytics == nil {
		writeError(w, http.StatusNotFound, "analytics disabled")
		return
	}

	q := r.URL.Query()
	page, err := parsePageParams(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := analytics.ListOptions{Query: q.Get("query"), Limit: page.Limit, Offset: page.Offset}
	if viewer := q.Get("viewer"); viewer != "" {
		opts.ViewerID = &viewer
	}

	list, err := s.cfg.Analytics.ListInteractions(r.Context(), opts)
	if err != nil {
		s.logger.Error("list interactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []analytics.Interaction{}
	}
	writeJSON(w, http.StatusOK, list)
}
