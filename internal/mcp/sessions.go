package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/rpggio/sitesearch/internal/domain/filter"
	"github.com/rpggio/sitesearch/internal/domain/search"
)

// searchSession is one MCP session's filter state together with the last
// result set those filters apply to.
type searchSession struct {
	store *filter.Store
	view  *filter.View

	mu   sync.Mutex
	last *search.Response

	lastUsed time.Time // guarded by sessionStores.mu
}

// remember makes resp the session's current result set and returns its
// entries under the current general filters.
func (s *searchSession) remember(resp *search.Response) []search.Entry {
	s.mu.Lock()
	s.last = resp
	s.mu.Unlock()
	return s.view.Derive(resp.Entries, s.store.Generic())
}

// results re-derives the last result set under the current filters. It is
// nil until the session has searched.
func (s *searchSession) results() *ResultsView {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return nil
	}

	shown := s.view.Derive(last.Entries, s.store.Generic())
	return &ResultsView{
		SearchID: last.SearchID,
		Query:    last.Query,
		Entries:  entryViews(shown),
		Found:    last.Found,
		Shown:    len(shown),
	}
}

// sessionStores holds one searchSession per MCP session. Sessions idle past
// the TTL are dropped on the next access.
type sessionStores struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*searchSession
}

func newSessionStores(ttl time.Duration, now func() time.Time) *sessionStores {
	return &sessionStores{ttl: ttl, now: now, entries: map[string]*searchSession{}}
}

// get returns the session for key, creating it with default filters.
func (s *sessionStores) get(key string) *searchSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if k != key && now.Sub(e.lastUsed) > s.ttl {
			delete(s.entries, k)
		}
	}

	e, ok := s.entries[key]
	if !ok {
		e = &searchSession{store: filter.NewStore(), view: filter.NewView(s.now)}
		s.entries[key] = e
	}
	e.lastUsed = now
	return e
}

func (s *sessionStores) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sessionKey returns the key stored by sessionMiddleware. Calls that reach a
// tool without one share a single default session.
func sessionKey(ctx context.Context) string {
	if key, _ := ctx.Value(sessionKeyKey).(string); key != "" {
		return key
	}
	return "default"
}
