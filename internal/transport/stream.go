package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rpggio/sitesearch/internal/domain/suggest"
)

const streamWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamInput is one keystroke-level update from the client.
type streamInput struct {
	Query string `json:"query"`
}

// latestState keeps only the newest fetcher snapshot for the writer.
type latestState struct {
	mu     sync.Mutex
	state  suggest.State
	have   bool
	signal chan struct{}
}

func newLatestState() *latestState {
	return &latestState{signal: make(chan struct{}, 1)}
}

func (l *latestState) offer(s suggest.State) {
	l.mu.Lock()
	if l.have && s.Version <= l.state.Version {
		l.mu.Unlock()
		return
	}
	l.state, l.have = s, true
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *latestState) take() suggest.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// handleSuggestStream drives one suggestion fetcher per connection. Each
// message from the client replaces the query; every state change is pushed
// back, superseded snapshots dropped.
func (s *Server) handleSuggestStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	latest := newLatestState()
	fetcher := suggest.NewFetcher(s.cfg.Search,
		suggest.WithDebounce(s.cfg.SuggestDebounce),
		suggest.WithMinLength(s.cfg.SuggestMinLength),
		suggest.WithTimeout(s.cfg.SuggestTimeout),
		suggest.WithLogger(s.logger),
		suggest.OnChange(latest.offer),
	)
	defer fetcher.Close()

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		var sent uint64
		for {
			select {
			case <-done:
				return
			case <-latest.signal:
				state := latest.take()
				if state.Version <= sent {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteJSON(state); err != nil {
					s.logger.Debug("suggest stream write failed", "error", err)
					return
				}
				sent = state.Version
			}
		}
	}()

	for {
		var in streamInput
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("suggest stream closed", "error", err)
			}
			break
		}
		fetcher.Input(in.Query)
	}

	close(done)
	<-writerDone
}
