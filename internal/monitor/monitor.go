// Package monitor is a progress monitor server, repurposed from the
// teacher's web/hub.go and web/server.go real-time reverb-control surface:
// rather than streaming live audio meters for interactive parameter
// control, it fans out batch-job progress events (pass/step/peak/clip
// counters) to connected WebSocket clients and exposes an HTTP endpoint
// that requests graceful cancellation at the next pass boundary.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one progress update broadcast to monitor clients.
type Event struct {
	Type      string  `json:"type"` // "pass" or "step"
	PassIndex int     `json:"pass_index,omitempty"`
	Passes    int     `json:"passes,omitempty"`
	Step      int     `json:"step,omitempty"`
	Steps     int     `json:"steps,omitempty"`
	PeakAbs   float64 `json:"peak_abs,omitempty"`
	Clipped   int     `json:"clipped,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Server broadcasts Events to WebSocket clients at /ws and exposes
// /cancel, which closes the Cancel channel on first request.
type Server struct {
	addr   string
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]bool

	upgrader websocket.Upgrader

	cancelOnce sync.Once
	cancelCh   chan struct{}

	httpServer *http.Server
}

// New builds a monitor server bound to addr (not yet listening).
func New(addr string, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		logger:   logger,
		clients:  make(map[*client]bool),
		cancelCh: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Cancel returns a channel that closes when /cancel has been requested,
// suitable for engine.DriverParams.Cancel.
func (s *Server) Cancel() <-chan struct{} { return s.cancelCh }

// Start begins serving in the background.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/cancel", s.handleCancel)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("monitor server exited", "error", err)
		}
	}()

	s.logger.Info("monitor server listening", "addr", s.addr)
}

// Stop shuts the HTTP server down.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = s.httpServer.Shutdown(ctx)
}

// Publish broadcasts an event to every connected client, dropping it for
// any client whose send buffer is full rather than blocking the caller.
func (s *Server) Publish(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		select {
		case c.send <- ev:
		default:
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("monitor websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Event, 64)}

	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	go s.writePump(c)
}

func (s *Server) writePump(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()

		_ = c.conn.Close()
	}()

	for ev := range c.send {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.cancelOnce.Do(func() {
		s.logger.Info("cancellation requested via monitor /cancel")
		close(s.cancelCh)
	})

	w.WriteHeader(http.StatusAccepted)
}
