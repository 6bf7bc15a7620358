package mcp

import (
	"time"

	"github.com/rpggio/sitesearch/internal/domain/filter"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/samber/lo"
)

type SearchParams struct {
	Query string `json:"query" jsonschema:"free-text search query" validate:"required"`
}

type SuggestParams struct {
	Query string `json:"query" jsonschema:"partial query being typed"`
}

type UpdateFilterParams struct {
	Variant string `json:"variant,omitempty" jsonschema:"result type: all, images, videos or news (default all)"`
	Key     string `json:"key" jsonschema:"facet key, for example timeRange or safeSearch" validate:"required"`
	Value   string `json:"value" jsonschema:"facet value, see the sitesearch://facets resource" validate:"required"`
}

type SetCustomRangeParams struct {
	Variant string `json:"variant,omitempty" jsonschema:"result type: all, images, videos or news (default all)"`
	From    string `json:"from" jsonschema:"range start, RFC 3339 or YYYY-MM-DD" validate:"required"`
	To      string `json:"to" jsonschema:"range end, RFC 3339 or YYYY-MM-DD" validate:"required"`
}

type RemoveFilterParams struct {
	Key string `json:"key" jsonschema:"timeRange or safeSearch" validate:"required"`
}

type ClearFiltersParams struct{}

type GetFiltersParams struct {
	Variant string `json:"variant,omitempty" jsonschema:"result type: all, images, videos or news (default all)"`
}

// EntryView is an entry with timestamps rendered as RFC 3339 strings.
type EntryView struct {
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsInternal  bool     `json:"isInternal"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	SafetyScore *float64 `json:"safetyScore,omitempty"`
}

// FiltersView is a filter record with custom bounds flattened.
type FiltersView struct {
	Variant    string            `json:"variant"`
	Facets     map[string]string `json:"facets"`
	CustomFrom string            `json:"custom_from,omitempty"`
	CustomTo   string            `json:"custom_to,omitempty"`
}

type SearchResult struct {
	SearchID         string      `json:"search_id"`
	Query            string      `json:"query"`
	Entries          []EntryView `json:"entries"`
	Found            int         `json:"found"`
	Shown            int         `json:"shown"`
	TimeTakenMs      int64       `json:"time_taken_ms"`
	Filters          FiltersView `json:"filters"`
	HasActiveFilters bool        `json:"has_active_filters"`
}

type SuggestResult struct {
	Query       string              `json:"query"`
	Suggestions []search.Suggestion `json:"suggestions"`
}

// ResultsView is the session's last search re-derived under its current
// filters, without querying the index again.
type ResultsView struct {
	SearchID string      `json:"search_id"`
	Query    string      `json:"query"`
	Entries  []EntryView `json:"entries"`
	Found    int         `json:"found"`
	Shown    int         `json:"shown"`
}

type FiltersResult struct {
	Filters          FiltersView         `json:"filters"`
	HasActiveFilters bool                `json:"has_active_filters"`
	Catalog          map[string][]string `json:"catalog,omitempty"`
	Results          *ResultsView        `json:"results,omitempty"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func entryViews(entries []search.Entry) []EntryView {
	return lo.Map(entries, func(e search.Entry, _ int) EntryView {
		return EntryView{
			URL:         e.URL,
			Name:        e.Name,
			Description: e.Description,
			IsInternal:  e.IsInternal,
			CreatedAt:   formatTime(e.CreatedAt),
			UpdatedAt:   formatTime(e.UpdatedAt),
			SafetyScore: e.SafetyScore,
		}
	})
}

func filtersView(rec filter.Record) FiltersView {
	view := FiltersView{Variant: string(rec.Variant), Facets: rec.Facets}
	if rec.Custom != nil {
		view.CustomFrom = formatTime(&rec.Custom.From)
		view.CustomTo = formatTime(&rec.Custom.To)
	}
	return view
}
