// Package wsfrontend exposes the bridge to a remote frontend over a
// websocket instead of an in-process callback: events already serialized
// for the boundary are relayed out as text frames, and received frames are
// fed through the boundary's command path. One frontend at a time; a new
// connection displaces the previous one.
package wsfrontend

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/hapticsuite/buzzbridge/pkg/bridge"
	"github.com/hapticsuite/buzzbridge/pkg/queue"
)

// Server relays bridge traffic to a single websocket frontend. Use Publish
// as (or from) the bridge's host callback; ServeHTTP accepts the frontend
// connection.
type Server struct {
	manager *bridge.Manager
	log     *zap.Logger
	outbox  *queue.Queue[string]

	mu      sync.Mutex
	gen     int
	preempt context.CancelFunc
}

// New creates a Server for manager. log may be nil.
func New(manager *bridge.Manager, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		manager: manager,
		log:     log,
		outbox:  queue.New[string](),
	}
}

// Publish queues an event payload for the frontend. It never blocks; with
// no frontend connected the payload waits in the outbox so a
// late-connecting frontend still sees the history.
func (s *Server) Publish(payload string) {
	_ = s.outbox.Push(payload)
}

// Close shuts down the relay and the live connection, if any.
func (s *Server) Close() {
	s.outbox.Close()
	s.mu.Lock()
	if s.preempt != nil {
		s.preempt()
	}
	s.mu.Unlock()
}

// ServeHTTP upgrades the request to a websocket and runs the relay until
// either side goes away or a newer frontend connects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("frontend accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "relay terminated")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.mu.Lock()
	if s.preempt != nil {
		s.preempt()
	}
	s.gen++
	gen := s.gen
	s.preempt = cancel
	s.mu.Unlock()

	s.log.Info("frontend connected", zap.String("remote", r.RemoteAddr))

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		defer cancel()
		for {
			payload, err := s.outbox.Pop(ctx)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(payload)); err != nil {
				s.log.Debug("frontend write failed", zap.Error(err))
				return
			}
		}
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		if typ != websocket.MessageText {
			continue
		}
		if st := s.manager.SendCommandJSON(string(data)); st.Code != bridge.CodeOK {
			s.log.Warn("frontend command rejected",
				zap.Int("code", st.Code), zap.String("reason", st.Message))
		}
	}

	cancel()
	<-writeDone

	s.mu.Lock()
	if s.gen == gen {
		s.preempt = nil
	}
	s.mu.Unlock()

	s.log.Info("frontend disconnected", zap.String("remote", r.RemoteAddr))
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
