// Package testserver runs the full HTTP stack against in-memory storage for
// functional tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sitesearch/internal/bleveindex"
	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/rpggio/sitesearch/internal/mcp"
	"github.com/rpggio/sitesearch/internal/sqlite"
	"github.com/rpggio/sitesearch/internal/transport"
	"github.com/stretchr/testify/require"
)

// Location reported for requests without geolocation headers.
const Location = "Test City, Test Region"

type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	Index     *bleveindex.Index
	Analytics *analytics.Service
	Token     string
	ViewerID  string
}

// New starts a server whose REST routes accept anonymous requests and whose
// MCP endpoint requires the given token.
func New(t *testing.T, token, viewerID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	index, err := bleveindex.Open("", nil)
	require.NoError(t, err)

	viewers := sqlite.NewViewerRepository(db)
	resolver := transport.NewKeyResolver(viewers)

	searchSvc := search.NewService(index, nil)
	analyticsSvc := analytics.NewService(sqlite.NewInteractionRepository(db), nil)

	router := transport.NewServer(transport.Config{
		Search:           searchSvc,
		Analytics:        analyticsSvc,
		Auth:             transport.AuthMiddleware(resolver, false),
		LocationFallback: Location,
		SuggestDebounce:  10 * time.Millisecond,
		SuggestMinLength: searchSvc.MinSuggestLength(),
		SuggestTimeout:   time.Second,
	})

	mcpServer := mcp.NewServer(mcp.Config{
		Services:         mcp.Services{Search: searchSvc, Analytics: analyticsSvc},
		Resolver:         resolver,
		AuthEnabled:      true,
		TransportMode:    "http",
		LocationFallback: Location,
	})
	router.Handle("/mcp", sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer }, nil,
	))

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:    server,
		DB:        db,
		Index:     index,
		Analytics: analyticsSvc,
		Token:     token,
		ViewerID:  viewerID,
	}

	require.NoError(t, viewers.Add(context.Background(), transport.HashToken(token), viewerID, "test key"))

	t.Cleanup(func() {
		server.Close()
		analyticsSvc.Wait()
		_ = index.Close()
		_ = db.Close()
	})

	return ts
}

// Seed indexes entries.
func (ts *TestServer) Seed(t *testing.T, entries ...search.Entry) {
	t.Helper()
	require.NoError(t, ts.Index.Put(entries...))
}
