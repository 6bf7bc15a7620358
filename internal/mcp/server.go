package mcp

import (
	"context"
	"io"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/search"
)

// SearchService defines search operations needed by MCP.
type SearchService interface {
	Search(ctx context.Context, query string) (*search.Response, error)
	Suggest(ctx context.Context, query string) ([]search.Suggestion, error)
}

// AnalyticsService defines interaction logging needed by MCP.
type AnalyticsService interface {
	LogInteraction(ctx context.Context, in analytics.Interaction)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Search    SearchService
	Analytics AnalyticsService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      ViewerResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger

	// LocationFallback fills the device location outside production.
	LocationFallback string
	Production       bool
	// SessionTTL evicts filter state of sessions idle for longer.
	SessionTTL time.Duration
	Now        func() time.Time
}

const defaultSessionTTL = 30 * time.Minute

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "sitesearch",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerResources(server)

	// Listed outermost first. Stdio is local only and never authenticates.
	var receiving []sdkmcp.Middleware
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		receiving = append(receiving, authMiddleware(cfg.Resolver))
	}
	receiving = append(receiving, sessionMiddleware(), trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddReceivingMiddleware(receiving...)
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &toolset{
		services: cfg.Services,
		sessions: newSessionStores(cfg.SessionTTL, cfg.Now),
		cfg:      cfg,
	})

	return server
}
