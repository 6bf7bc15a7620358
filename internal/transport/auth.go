package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rpggio/sitesearch/internal/repository"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type viewerKey struct{}

// ViewerResolver resolves a viewer ID from a bearer token.
type ViewerResolver interface {
	ResolveViewer(ctx context.Context, token string) (string, error)
}

// ViewerFromContext returns the viewer ID from context, if present.
func ViewerFromContext(ctx context.Context) (string, bool) {
	viewerID, ok := ctx.Value(viewerKey{}).(string)
	return viewerID, ok && viewerID != ""
}

// WithViewer returns a context carrying a viewer ID.
func WithViewer(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerKey{}, viewerID)
}

// AuthMiddleware resolves bearer tokens to viewers. When required is false,
// requests without a token pass through anonymously; a token that is present
// but invalid is always rejected.
func AuthMiddleware(resolver ViewerResolver, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header)
			if token == "" {
				if required {
					writeError(w, http.StatusUnauthorized, "missing bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			viewerID, err := resolver.ResolveViewer(r.Context(), token)
			if err != nil || viewerID == "" {
				writeError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewerID)))
		})
	}
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(h http.Header) string {
	auth := h.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// KeyResolver resolves tokens through the stored viewer keys.
type KeyResolver struct {
	repo repository.ViewerRepository
}

// NewKeyResolver creates a resolver backed by the viewer key repository.
func NewKeyResolver(repo repository.ViewerRepository) *KeyResolver {
	return &KeyResolver{repo: repo}
}

// ResolveViewer implements ViewerResolver.
func (k *KeyResolver) ResolveViewer(ctx context.Context, token string) (string, error) {
	viewerID, err := k.repo.Resolve(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("resolve viewer: %w", err)
	}
	return viewerID, nil
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
