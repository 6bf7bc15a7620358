package functional_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/rpggio/sitesearch/internal/testserver"
	"github.com/rpggio/sitesearch/internal/transport"
	"github.com/stretchr/testify/require"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func seedEntries(now time.Time) []search.Entry {
	return []search.Entry{
		{URL: "https://fresh.example", Name: "Zimbabwe news today", Description: "fresh", CreatedAt: ptrTime(now.Add(-2 * time.Hour))},
		{URL: "https://stale.example", Name: "Zimbabwe history", Description: "stale", CreatedAt: ptrTime(now.Add(-90 * 24 * time.Hour))},
		{URL: "https://edgy.example", Name: "Zimbabwe nightlife", Description: "edgy", CreatedAt: ptrTime(now.Add(-time.Hour)), SafetyScore: ptrFloat(0.7)},
		{URL: "https://wiki.example", Name: "Zimbabwe wiki", Description: "internal page", IsInternal: true,
			CreatedAt: ptrTime(now.Add(-400 * 24 * time.Hour)), UpdatedAt: ptrTime(now.Add(-3 * time.Hour))},
	}
}

func get(t *testing.T, ts *testserver.TestServer, path string, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func resultURLs(entries []search.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.URL)
	}
	return out
}

func TestREST_SearchFilterAndLog(t *testing.T) {
	ts := testserver.New(t, "token-1", "viewer-1")
	ts.Seed(t, seedEntries(time.Now())...)

	var all transport.SearchResponse
	require.Equal(t, http.StatusOK, get(t, ts, "/search?q=zimbabwe", "", &all))
	require.Equal(t, 4, all.Found)
	require.Len(t, all.Entries, 4)
	require.False(t, all.HasActiveFilters)
	ts.Analytics.Wait()

	params := url.Values{"q": {"zimbabwe"}, "timeRange": {"Past 24 hours"}, "safeSearch": {"Strict"}}
	var filtered transport.SearchResponse
	require.Equal(t, http.StatusOK, get(t, ts, "/search?"+params.Encode(), ts.Token, &filtered))
	require.True(t, filtered.HasActiveFilters)
	require.ElementsMatch(t, []string{"https://fresh.example", "https://wiki.example"}, resultURLs(filtered.Entries))

	ts.Analytics.Wait()

	var logged []analytics.Interaction
	require.Equal(t, http.StatusOK, get(t, ts, "/interactions?viewer=viewer-1", "", &logged))
	require.Len(t, logged, 1)
	require.Equal(t, filtered.SearchID, logged[0].SearchID)
	require.Equal(t, resultURLs(filtered.Entries), []string{logged[0].Results[0].URL, logged[0].Results[1].URL})
	require.Equal(t, "mobile", logged[0].Device.DeviceType)
	require.Equal(t, "iOS", logged[0].Device.OSName)
	require.Equal(t, testserver.Location, logged[0].Device.Location)

	var everything []analytics.Interaction
	require.Equal(t, http.StatusOK, get(t, ts, "/interactions", "", &everything))
	require.Len(t, everything, 2)
	require.Nil(t, everything[1].ViewerID)
}

func TestREST_InvalidToken(t *testing.T) {
	ts := testserver.New(t, "token-1", "viewer-1")

	require.Equal(t, http.StatusUnauthorized, get(t, ts, "/search?q=zimbabwe", "wrong", nil))
}

func TestREST_Suggest(t *testing.T) {
	ts := testserver.New(t, "token-1", "viewer-1")
	ts.Seed(t, seedEntries(time.Now())...)

	var resp transport.SuggestResponse
	require.Equal(t, http.StatusOK, get(t, ts, "/suggest?q=zimbabwe+ni", "", &resp))
	require.Equal(t, []search.Suggestion{{ID: "https://edgy.example", Title: "Zimbabwe nightlife"}}, resp.Suggestions)
}

func TestREST_EmptyIndexStillAnswers(t *testing.T) {
	ts := testserver.New(t, "token-1", "viewer-1")

	var resp transport.SearchResponse
	require.Equal(t, http.StatusOK, get(t, ts, "/search?q=anything", "", &resp))
	require.Empty(t, resp.Entries)
	require.NotNil(t, resp.Entries)
	require.Zero(t, resp.Found)
}
