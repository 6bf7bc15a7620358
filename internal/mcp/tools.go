package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/filter"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/samber/lo"
)

var validate = validator.New()

// ErrInvalidArguments indicates tool arguments failed validation.
var ErrInvalidArguments = errors.New("invalid arguments")

type toolset struct {
	services Services
	sessions *sessionStores
	cfg      Config
}

func registerTools(server *sdkmcp.Server, ts *toolset) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search",
		Description: "Search the index and return results filtered by this session's time range and safe search settings",
	}, ts.search)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "suggest",
		Description: "Complete a partial query; queries shorter than two characters return no suggestions",
	}, ts.suggest)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_filter",
		Description: "Set one facet of a result type's filters for this session",
	}, ts.updateFilter)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_custom_range",
		Description: "Restrict results to an explicit date range; switches the time range to Custom range",
	}, ts.setCustomRange)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_filter",
		Description: "Reset timeRange or safeSearch of the general filters to the default",
	}, ts.removeFilter)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "clear_filters",
		Description: "Reset the general filters to their defaults; image, video and news filters are kept",
	}, ts.clearFilters)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_filters",
		Description: "Show a result type's current filters and the values each facet accepts",
	}, ts.getFilters)
}

func checkArgs(in any) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func (ts *toolset) search(ctx context.Context, req *sdkmcp.CallToolRequest, in SearchParams) (*sdkmcp.CallToolResult, SearchResult, error) {
	if err := checkArgs(in); err != nil {
		return nil, SearchResult{}, err
	}

	resp, err := ts.services.Search.Search(ctx, in.Query)
	if err != nil {
		return nil, SearchResult{}, toolError(err)
	}

	sess := ts.sessions.get(sessionKey(ctx))
	generic := sess.store.Generic()
	shown := sess.remember(resp)

	if ts.services.Analytics != nil {
		ts.services.Analytics.LogInteraction(ctx, ts.interaction(ctx, req, resp, shown))
	}

	return nil, SearchResult{
		SearchID:         resp.SearchID,
		Query:            resp.Query,
		Entries:          entryViews(shown),
		Found:            resp.Found,
		Shown:            len(shown),
		TimeTakenMs:      resp.TimeTakenMs,
		Filters:          filtersView(generic),
		HasActiveFilters: sess.store.HasActiveFilters(),
	}, nil
}

func (ts *toolset) interaction(ctx context.Context, req *sdkmcp.CallToolRequest, resp *search.Response, shown []search.Entry) analytics.Interaction {
	var header http.Header
	if extra := req.GetExtra(); extra != nil {
		header = extra.Header
	}
	in := analytics.Interaction{
		SearchID: resp.SearchID,
		Query:    resp.Query,
		Results:  analytics.RankedResults(lo.Map(shown, func(e search.Entry, _ int) string { return e.URL })),
		Device:   analytics.DeviceFromHeaders(header, ts.cfg.LocationFallback, ts.cfg.Production),
	}
	if viewerID := getViewerID(ctx); viewerID != "" {
		in.ViewerID = &viewerID
	}
	return in
}

func (ts *toolset) suggest(ctx context.Context, _ *sdkmcp.CallToolRequest, in SuggestParams) (*sdkmcp.CallToolResult, SuggestResult, error) {
	suggestions, err := ts.services.Search.Suggest(ctx, in.Query)
	if errors.Is(err, search.ErrInvalidInput) {
		return nil, SuggestResult{Query: in.Query, Suggestions: []search.Suggestion{}}, nil
	}
	if err != nil {
		return nil, SuggestResult{}, toolError(err)
	}
	return nil, SuggestResult{Query: in.Query, Suggestions: suggestions}, nil
}

func (ts *toolset) updateFilter(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateFilterParams) (*sdkmcp.CallToolResult, FiltersResult, error) {
	if err := checkArgs(in); err != nil {
		return nil, FiltersResult{}, err
	}
	variant, err := filter.ParseVariant(in.Variant)
	if err != nil {
		return nil, FiltersResult{}, toolError(err)
	}

	sess := ts.sessions.get(sessionKey(ctx))
	if err := sess.store.UpdateFilter(variant, in.Key, in.Value); err != nil {
		return nil, FiltersResult{}, toolError(err)
	}
	return nil, filtersResult(sess, variant, false), nil
}

func (ts *toolset) setCustomRange(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetCustomRangeParams) (*sdkmcp.CallToolResult, FiltersResult, error) {
	if err := checkArgs(in); err != nil {
		return nil, FiltersResult{}, err
	}
	variant, err := filter.ParseVariant(in.Variant)
	if err != nil {
		return nil, FiltersResult{}, toolError(err)
	}
	from, err := filter.ParseBound(in.From)
	if err != nil {
		return nil, FiltersResult{}, fmt.Errorf("%w: from: %v", ErrInvalidArguments, err)
	}
	to, err := filter.ParseBound(in.To)
	if err != nil {
		return nil, FiltersResult{}, fmt.Errorf("%w: to: %v", ErrInvalidArguments, err)
	}

	sess := ts.sessions.get(sessionKey(ctx))
	if err := sess.store.SetCustomRange(variant, from, to); err != nil {
		return nil, FiltersResult{}, toolError(err)
	}
	return nil, filtersResult(sess, variant, false), nil
}

func (ts *toolset) removeFilter(ctx context.Context, _ *sdkmcp.CallToolRequest, in RemoveFilterParams) (*sdkmcp.CallToolResult, FiltersResult, error) {
	if err := checkArgs(in); err != nil {
		return nil, FiltersResult{}, err
	}
	sess := ts.sessions.get(sessionKey(ctx))
	sess.store.RemoveFilter(in.Key)
	return nil, filtersResult(sess, filter.VariantAll, false), nil
}

func (ts *toolset) clearFilters(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ClearFiltersParams) (*sdkmcp.CallToolResult, FiltersResult, error) {
	sess := ts.sessions.get(sessionKey(ctx))
	sess.store.ClearAllFilters()
	return nil, filtersResult(sess, filter.VariantAll, false), nil
}

func (ts *toolset) getFilters(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetFiltersParams) (*sdkmcp.CallToolResult, FiltersResult, error) {
	variant, err := filter.ParseVariant(in.Variant)
	if err != nil {
		return nil, FiltersResult{}, toolError(err)
	}
	sess := ts.sessions.get(sessionKey(ctx))
	return nil, filtersResult(sess, variant, true), nil
}

// filtersResult reports a record after a change, with the session's last
// results re-derived under the general filters.
func filtersResult(sess *searchSession, variant filter.Variant, withCatalog bool) FiltersResult {
	rec, _ := sess.store.Filters(variant)
	out := FiltersResult{
		Filters:          filtersView(rec),
		HasActiveFilters: sess.store.HasActiveFilters(),
		Results:          sess.results(),
	}
	if withCatalog {
		out.Catalog = filter.Catalog(variant)
	}
	return out
}
