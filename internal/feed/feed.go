// Package feed exposes the domain event stream to out-of-process
// collaborators (map renderers, Discord relays, statistics) as JSON
// frames over a websocket endpoint.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vekshin/warground/internal/event"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the wire frame for one event.
type envelope struct {
	Type event.Type  `json:"type"`
	Time time.Time   `json:"time"`
	Data event.Event `json:"data"`
}

// client is one connected feed consumer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans bus events out to websocket clients. A client that
// cannot keep up is dropped; the bus is never blocked.
type Server struct {
	addr string
	bus  *event.Bus

	mu      sync.Mutex
	clients map[*client]struct{}

	subID int
}

// NewServer creates a feed server listening on addr.
func NewServer(addr string, bus *event.Bus) *Server {
	return &Server{
		addr:    addr,
		bus:     bus,
		clients: make(map[*client]struct{}, 8),
	}
}

// Start subscribes to the bus and serves the /feed endpoint (blocks
// until the context is canceled).
func (s *Server) Start(ctx context.Context) error {
	s.subID = s.bus.Subscribe(s.broadcast)
	defer s.bus.Unsubscribe(s.subID)

	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleFeed)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("event feed listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeAll()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("feed upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	slog.Info("feed client connected", "remote", r.RemoteAddr)

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop discards inbound frames and detects disconnects.
func (s *Server) readLoop(c *client) {
	defer s.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// broadcast serializes one event and queues it to every client.
func (s *Server) broadcast(ev event.Event) {
	data, err := json.Marshal(envelope{Type: ev.EventType(), Time: time.Now(), Data: ev})
	if err != nil {
		slog.Error("feed event marshal failed", "type", ev.EventType(), "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer: drop it rather than block the bus.
			delete(s.clients, c)
			close(c.send)
			slog.Warn("feed client dropped (slow consumer)")
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected feed clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
