package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sitesearch/internal/transport"
)

type contextKey int

const (
	viewerIDKey contextKey = iota
	sessionKeyKey
)

const sessionHeader = "Mcp-Session-Id"

// getViewerID extracts the viewer ID from context.
func getViewerID(ctx context.Context) string {
	v, _ := ctx.Value(viewerIDKey).(string)
	return v
}

// ViewerResolver resolves a viewer ID from a bearer token.
type ViewerResolver interface {
	ResolveViewer(ctx context.Context, token string) (string, error)
}

// authMiddleware resolves the bearer token of every request past the
// handshake to a viewer. Anonymous calls are refused.
func authMiddleware(resolver ViewerResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			var token string
			if extra := req.GetExtra(); extra != nil && extra.Header != nil {
				token = transport.BearerToken(extra.Header)
			}
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", transport.ErrUnauthorized)
			}

			viewerID, err := resolver.ResolveViewer(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", transport.ErrUnauthorized, err)
			}
			if viewerID == "" {
				return nil, fmt.Errorf("%w: no viewer for token", transport.ErrUnauthorized)
			}

			return next(context.WithValue(ctx, viewerIDKey, viewerID), method, req)
		}
	}
}

// sessionMiddleware stores the key that selects the caller's filter state.
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if key := requestSessionKey(req); key != "" {
				ctx = context.WithValue(ctx, sessionKeyKey, key)
			}
			return next(ctx, method, req)
		}
	}
}

// requestSessionKey prefers the streamable HTTP session header, then a
// session_id in the tool call's _meta (stdio clients), then the SDK session.
// Connections without any ID are keyed by identity.
func requestSessionKey(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if id := extra.Header.Get(sessionHeader); id != "" {
			return id
		}
	}

	call, isCall := req.(*sdkmcp.CallToolRequest)
	if isCall && call.Params != nil {
		if id, ok := call.Params.GetMeta()["session_id"].(string); ok && id != "" {
			return id
		}
	}
	if id := safeSessionID(req); id != "" {
		return id
	}
	if isCall && call.Session != nil {
		return fmt.Sprintf("conn:%p", call.Session)
	}
	return ""
}
