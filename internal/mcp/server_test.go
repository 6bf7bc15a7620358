package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/filter"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type searchStub struct {
	entries []search.Entry
	err     error
	calls   atomic.Int32
}

func (s *searchStub) Search(_ context.Context, query string) (*search.Response, error) {
	s.calls.Add(1)
	if query == "" || query == " " {
		return nil, search.ErrInvalidInput
	}
	if s.err != nil {
		return nil, s.err
	}
	return &search.Response{SearchID: "sid-1", Query: query, Entries: s.entries, Found: len(s.entries), TimeTakenMs: 2}, nil
}

func (s *searchStub) Suggest(_ context.Context, query string) ([]search.Suggestion, error) {
	if len(query) < 2 {
		return nil, search.ErrInvalidInput
	}
	return []search.Suggestion{{ID: "1", Title: query + "babwe"}}, nil
}

type analyticsStub struct {
	mu     sync.Mutex
	logged []analytics.Interaction
}

func (a *analyticsStub) LogInteraction(_ context.Context, in analytics.Interaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logged = append(a.logged, in)
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func stubEntries() []search.Entry {
	return []search.Entry{
		{URL: "https://a.example", Name: "a", CreatedAt: ptrTime(fixedNow.Add(-30 * time.Minute)), SafetyScore: ptrFloat(0.95)},
		{URL: "https://b.example", Name: "b", CreatedAt: ptrTime(fixedNow.Add(-3 * time.Hour)), SafetyScore: ptrFloat(0.6)},
		{URL: "https://c.example", Name: "c", SafetyScore: ptrFloat(0.2)},
	}
}

type harness struct {
	server    *sdkmcp.Server
	search    *searchStub
	analytics *analyticsStub
}

func newHarness() *harness {
	h := &harness{search: &searchStub{entries: stubEntries()}, analytics: &analyticsStub{}}
	h.server = NewServer(Config{
		Services:         Services{Search: h.search, Analytics: h.analytics},
		TransportMode:    "stdio",
		LocationFallback: "Localhost, Development",
		Now:              func() time.Time { return fixedNow },
	})
	return h
}

func (h *harness) connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()

	ss, err := h.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func call[T any](t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	res := callRaw(t, cs, name, args)
	require.False(t, res.IsError, "tool %s failed: %s", name, errorText(res))

	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func callRaw(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func errorText(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func urlsOf(entries []EntryView) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.URL)
	}
	return out
}

func TestServer_ListsTools(t *testing.T) {
	cs := newHarness().connect(t)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"search", "suggest", "update_filter", "set_custom_range", "remove_filter", "clear_filters", "get_filters",
	}, names)
}

func TestSearch_DefaultFilters(t *testing.T) {
	h := newHarness()
	cs := h.connect(t)

	out := call[SearchResult](t, cs, "search", map[string]any{"query": "zim"})
	require.Equal(t, "sid-1", out.SearchID)
	require.Equal(t, 3, out.Found)
	require.Equal(t, 2, out.Shown)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, urlsOf(out.Entries))
	require.False(t, out.HasActiveFilters)
	require.Equal(t, filter.SafeModerate, out.Filters.Facets[filter.KeySafeSearch])
	require.Equal(t, fixedNow.Add(-30*time.Minute).Format(time.RFC3339), out.Entries[0].CreatedAt)

	h.analytics.mu.Lock()
	defer h.analytics.mu.Unlock()
	require.Len(t, h.analytics.logged, 1)
	logged := h.analytics.logged[0]
	require.Equal(t, "sid-1", logged.SearchID)
	require.Nil(t, logged.ViewerID)
	require.Equal(t, []analytics.RankedResult{
		{Position: 1, URL: "https://a.example"},
		{Position: 2, URL: "https://b.example"},
	}, logged.Results)
	require.Equal(t, "Localhost, Development", logged.Device.Location)
}

func TestSearch_SessionFiltersApply(t *testing.T) {
	cs := newHarness().connect(t)

	filters := call[FiltersResult](t, cs, "update_filter", map[string]any{"key": filter.KeyTimeRange, "value": filter.TimePastHour})
	require.True(t, filters.HasActiveFilters)

	out := call[SearchResult](t, cs, "search", map[string]any{"query": "zim"})
	require.Equal(t, []string{"https://a.example"}, urlsOf(out.Entries))
	require.True(t, out.HasActiveFilters)

	call[FiltersResult](t, cs, "update_filter", map[string]any{"key": filter.KeySafeSearch, "value": filter.SafeOff})
	call[FiltersResult](t, cs, "remove_filter", map[string]any{"key": filter.KeyTimeRange})

	out = call[SearchResult](t, cs, "search", map[string]any{"query": "zim"})
	require.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, urlsOf(out.Entries))
}

func TestSearch_SessionsAreIsolated(t *testing.T) {
	h := newHarness()
	first := h.connect(t)
	second := h.connect(t)

	call[FiltersResult](t, first, "update_filter", map[string]any{"key": filter.KeySafeSearch, "value": filter.SafeStrict})

	out := call[SearchResult](t, first, "search", map[string]any{"query": "zim"})
	require.Equal(t, []string{"https://a.example"}, urlsOf(out.Entries))

	out = call[SearchResult](t, second, "search", map[string]any{"query": "zim"})
	require.Equal(t, []string{"https://a.example", "https://b.example"}, urlsOf(out.Entries))
}

func TestSearch_Errors(t *testing.T) {
	h := newHarness()
	cs := h.connect(t)

	res := callRaw(t, cs, "search", map[string]any{"query": ""})
	require.True(t, res.IsError)
	require.Contains(t, errorText(res), "invalid arguments")

	res = callRaw(t, cs, "search", map[string]any{"query": " "})
	require.True(t, res.IsError)
	require.Contains(t, errorText(res), "INVALID_QUERY")

	h.search.err = fmt.Errorf("%w: dial tcp: connection refused", search.ErrUnavailable)
	res = callRaw(t, cs, "search", map[string]any{"query": "zim"})
	require.True(t, res.IsError)
	require.Contains(t, errorText(res), "CONNECTION_ERROR")

	h.analytics.mu.Lock()
	defer h.analytics.mu.Unlock()
	require.Empty(t, h.analytics.logged)
}

func TestSuggest(t *testing.T) {
	cs := newHarness().connect(t)

	out := call[SuggestResult](t, cs, "suggest", map[string]any{"query": "zim"})
	require.Equal(t, []search.Suggestion{{ID: "1", Title: "zimbabwe"}}, out.Suggestions)

	out = call[SuggestResult](t, cs, "suggest", map[string]any{"query": "z"})
	require.Empty(t, out.Suggestions)
}

func TestFilters_ClearKeepsVariantRecords(t *testing.T) {
	cs := newHarness().connect(t)

	call[FiltersResult](t, cs, "update_filter", map[string]any{"variant": "images", "key": filter.KeySize, "value": "Large"})
	call[FiltersResult](t, cs, "update_filter", map[string]any{"key": filter.KeyTimeRange, "value": filter.TimePastWeek})

	cleared := call[FiltersResult](t, cs, "clear_filters", nil)
	require.False(t, cleared.HasActiveFilters)
	require.Equal(t, filter.TimeAny, cleared.Filters.Facets[filter.KeyTimeRange])

	images := call[FiltersResult](t, cs, "get_filters", map[string]any{"variant": "images"})
	require.Equal(t, "Large", images.Filters.Facets[filter.KeySize])
	require.Contains(t, images.Catalog[filter.KeySize], "Large")
}

func TestFilters_CustomRange(t *testing.T) {
	cs := newHarness().connect(t)

	out := call[FiltersResult](t, cs, "set_custom_range", map[string]any{"from": "2025-06-15T08:00:00Z", "to": "2025-06-15T10:00:00Z"})
	require.Equal(t, filter.TimeCustom, out.Filters.Facets[filter.KeyTimeRange])
	require.Equal(t, "2025-06-15T08:00:00Z", out.Filters.CustomFrom)

	res := call[SearchResult](t, cs, "search", map[string]any{"query": "zim"})
	require.Equal(t, []string{"https://b.example"}, urlsOf(res.Entries))

	out = call[FiltersResult](t, cs, "update_filter", map[string]any{"key": filter.KeyTimeRange, "value": filter.TimePastYear})
	require.Empty(t, out.Filters.CustomFrom)

	bad := callRaw(t, cs, "set_custom_range", map[string]any{"from": "soon", "to": "2025-06-15"})
	require.True(t, bad.IsError)
}

func TestFilters_UnknownVariant(t *testing.T) {
	cs := newHarness().connect(t)

	res := callRaw(t, cs, "update_filter", map[string]any{"variant": "maps", "key": filter.KeySize, "value": "Large"})
	require.True(t, res.IsError)
	require.Contains(t, errorText(res), "UNKNOWN_VARIANT")

	res = callRaw(t, cs, "get_filters", map[string]any{"variant": "maps"})
	require.True(t, res.IsError)
}

func TestFacetsResource(t *testing.T) {
	cs := newHarness().connect(t)

	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: facetsURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var catalog []facetCatalog
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &catalog))
	require.Len(t, catalog, len(filter.Variants))
	require.Equal(t, filter.VariantAll, catalog[0].Variant)
	require.Equal(t, filter.TimeAny, catalog[0].Defaults[filter.KeyTimeRange])
}

func TestSessionStores_EvictsIdle(t *testing.T) {
	now := fixedNow
	stores := newSessionStores(time.Minute, func() time.Time { return now })

	a := stores.get("a")
	require.NoError(t, a.store.UpdateFilter(filter.VariantAll, filter.KeySafeSearch, filter.SafeOff))
	require.Same(t, a, stores.get("a"))

	now = now.Add(2 * time.Minute)
	stores.get("b")
	require.Equal(t, 1, stores.size())

	fresh := stores.get("a")
	require.NotSame(t, a, fresh)
	require.False(t, fresh.store.HasActiveFilters())
	require.Nil(t, fresh.results())
}

func TestSearchSession_MemoizesDerivation(t *testing.T) {
	stores := newSessionStores(time.Minute, func() time.Time { return fixedNow })
	sess := stores.get("a")

	resp := &search.Response{SearchID: "sid-1", Query: "zim", Entries: stubEntries(), Found: 3}
	require.Len(t, sess.remember(resp), 2)
	require.Len(t, sess.results().Entries, 2)
	require.Len(t, sess.results().Entries, 2)
	require.Equal(t, 1, sess.view.Computations())

	require.NoError(t, sess.store.UpdateFilter(filter.VariantImages, filter.KeySize, "Large"))
	sess.results()
	require.Equal(t, 1, sess.view.Computations())

	sess.store.RemoveFilter(filter.KeySafeSearch)
	require.NoError(t, sess.store.UpdateFilter(filter.VariantAll, filter.KeySafeSearch, filter.SafeOff))
	require.Equal(t, 3, sess.results().Shown)
	require.Equal(t, 2, sess.view.Computations())
}

func TestFilters_RederiveLastResults(t *testing.T) {
	h := newHarness()
	cs := h.connect(t)

	before := call[FiltersResult](t, cs, "update_filter", map[string]any{"key": filter.KeySafeSearch, "value": filter.SafeModerate})
	require.Nil(t, before.Results)

	call[SearchResult](t, cs, "search", map[string]any{"query": "zim"})

	out := call[FiltersResult](t, cs, "update_filter", map[string]any{"key": filter.KeyTimeRange, "value": filter.TimePastHour})
	require.True(t, out.HasActiveFilters)
	require.NotNil(t, out.Results)
	require.Equal(t, "sid-1", out.Results.SearchID)
	require.Equal(t, 3, out.Results.Found)
	require.Equal(t, 1, out.Results.Shown)
	require.Equal(t, []string{"https://a.example"}, urlsOf(out.Results.Entries))

	out = call[FiltersResult](t, cs, "update_filter", map[string]any{"key": filter.KeySafeSearch, "value": filter.SafeOff})
	require.Equal(t, []string{"https://a.example", "https://c.example"}, urlsOf(out.Results.Entries))

	out = call[FiltersResult](t, cs, "remove_filter", map[string]any{"key": filter.KeyTimeRange})
	require.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, urlsOf(out.Results.Entries))

	out = call[FiltersResult](t, cs, "set_custom_range", map[string]any{"from": "2025-06-15T08:00:00Z", "to": "2025-06-15T10:00:00Z"})
	require.Equal(t, []string{"https://b.example", "https://c.example"}, urlsOf(out.Results.Entries))

	out = call[FiltersResult](t, cs, "clear_filters", nil)
	require.False(t, out.HasActiveFilters)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, urlsOf(out.Results.Entries))

	require.Equal(t, int32(1), h.search.calls.Load())
	h.analytics.mu.Lock()
	defer h.analytics.mu.Unlock()
	require.Len(t, h.analytics.logged, 1)
}

func TestRequestSessionKey(t *testing.T) {
	require.Empty(t, requestSessionKey(nil))

	withHeader := &sdkmcp.CallToolRequest{
		Params: &sdkmcp.CallToolParamsRaw{Name: "search"},
		Extra:  &sdkmcp.RequestExtra{Header: http.Header{sessionHeader: []string{"http-1"}}},
	}
	require.Equal(t, "http-1", requestSessionKey(withHeader))

	params := &sdkmcp.CallToolParamsRaw{}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"search","_meta":{"session_id":"stdio-1"}}`), params))
	require.Equal(t, "stdio-1", requestSessionKey(&sdkmcp.CallToolRequest{Params: params}))

	require.Empty(t, requestSessionKey(&sdkmcp.CallToolRequest{Params: &sdkmcp.CallToolParamsRaw{Name: "search"}}))
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("boom")))
	require.Equal(t, "CONNECTION_ERROR", MapError(fmt.Errorf("wrap: %w", search.ErrUnavailable)).Code)
	require.Equal(t, "UNKNOWN_VARIANT", MapError(filter.ErrUnknownVariant).Code)
}
