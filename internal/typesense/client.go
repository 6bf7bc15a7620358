// Package typesense talks to a hosted Typesense collection over its REST API.
package typesense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/motemen/go-loghttp"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"golang.org/x/sync/singleflight"
)

// ErrStatus indicates a non-2xx response from Typesense.
var ErrStatus = errors.New("unexpected typesense status")

const (
	defaultPerPage = 50
	apiKeyHeader   = "X-TYPESENSE-API-KEY"
)

// Config describes the collection to query.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	QueryBy    string
	Timeout    time.Duration
	PerPage    int
}

// Client implements search.Index against Typesense.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	group  singleflight.Group
}

// New creates a client. Requests and responses are logged at debug level.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	transport := &loghttp.Transport{
		Transport: http.DefaultTransport,
		LogRequest: func(req *http.Request) {
			logger.Debug("typesense request", "method", req.Method, "url", req.URL.Redacted())
		},
		LogResponse: func(resp *http.Response) {
			logger.Debug("typesense response", "url", resp.Request.URL.Redacted(), "status", resp.StatusCode)
		},
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: logger,
	}
}

type document struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsInternal  bool      `json:"isInternal"`
	CreatedAt   *unixTime `json:"created_at"`
	UpdatedAt   *unixTime `json:"updated_at"`
	SafetyScore *float64  `json:"safetyScore"`
}

type searchResponse struct {
	Found        int   `json:"found"`
	SearchTimeMs int64 `json:"search_time_ms"`
	Hits         []struct {
		Document document `json:"document"`
	} `json:"hits"`
}

// Search runs a full-text query against the collection.
func (c *Client) Search(ctx context.Context, query string) (*search.IndexResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("query_by", c.cfg.QueryBy)
	params.Set("per_page", strconv.Itoa(c.cfg.PerPage))

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	entries := make([]search.Entry, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		entries = append(entries, hit.Document.entry())
	}

	return &search.IndexResult{
		Entries:     entries,
		Found:       resp.Found,
		TimeTakenMs: resp.SearchTimeMs,
	}, nil
}

// Suggest runs a prefix query on document names. Identical concurrent
// requests share one round trip, which outlives any single caller; a caller
// whose context ends returns at once with the context's error.
func (c *Client) Suggest(ctx context.Context, query string, limit int) ([]search.Suggestion, error) {
	key := strconv.Itoa(limit) + "\x00" + query
	ch := c.group.DoChan(key, func() (any, error) {
		return c.suggest(context.WithoutCancel(ctx), query, limit)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]search.Suggestion), nil
	}
}

func (c *Client) suggest(ctx context.Context, query string, limit int) ([]search.Suggestion, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("query_by", "name")
	params.Set("prefix", "true")
	params.Set("include_fields", "id,name")
	params.Set("per_page", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	suggestions := make([]search.Suggestion, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		suggestions = append(suggestions, search.Suggestion{ID: hit.Document.ID, Title: hit.Document.Name})
	}
	return suggestions, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/collections/%s/documents/search?%s",
		c.cfg.URL, url.PathEscape(c.cfg.Collection), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build typesense request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("typesense request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode typesense response: %w", err)
	}
	return nil
}

func (d document) entry() search.Entry {
	return search.Entry{
		URL:         d.URL,
		Name:        d.Name,
		Description: d.Description,
		IsInternal:  d.IsInternal,
		CreatedAt:   d.CreatedAt.timePtr(),
		UpdatedAt:   d.UpdatedAt.timePtr(),
		SafetyScore: d.SafetyScore,
	}
}

// unixTime accepts Typesense's int64 unix seconds as well as RFC 3339 strings.
type unixTime struct {
	time.Time
}

func (u *unixTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", str, err)
		}
		u.Time = t
		return nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", s, err)
	}
	u.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}

func (u *unixTime) timePtr() *time.Time {
	if u == nil || u.IsZero() {
		return nil
	}
	t := u.Time
	return &t
}
