// Package server exposes a Lab over HTTP and websockets.
//
// Clients connect to /ws, send lab.Intent JSON and receive a Message after
// every change. Plain HTTP endpoints serve the current state and a hint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abhisek/vlab/internal/guidance"
	"github.com/abhisek/vlab/internal/lab"
)

// Message types sent to websocket clients.
const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
)

// hintTimeout bounds a /api/guidance request.
const hintTimeout = 20 * time.Second

// Message is the outbound websocket frame.
type Message struct {
	Type     string        `json:"type"`
	Snapshot *lab.Snapshot `json:"snapshot,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Options configures a Server.
type Options struct {
	// AllowedOrigins are accepted in addition to the request's own host.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server serves one Lab. Create it with New and release it with Close.
type Server struct {
	lab      *lab.Lab
	guide    *guidance.Service
	hub      *hub
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	logger   *slog.Logger
	unsub    func()
}

// New wires a Server to l. guide may be nil, in which case rule hints are
// served.
func New(l *lab.Lab, guide *guidance.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if guide == nil {
		guide = guidance.NewService(nil)
	}

	s := &Server{
		lab:    l,
		guide:  guide,
		hub:    newHub(logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/guidance", s.handleGuidance)
	mux.HandleFunc("GET /api/challenges", s.handleChallenges)
	mux.HandleFunc("POST /api/intent", s.handleIntent)
	mux.HandleFunc("GET /ws", s.handleWS)
	s.mux = mux

	s.unsub = l.Subscribe(func(snap lab.Snapshot) {
		if msg, err := encode(Message{Type: MessageSnapshot, Snapshot: &snap}); err == nil {
			s.hub.publish(msg)
		}
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close detaches from the lab and disconnects every client.
func (s *Server) Close() {
	s.unsub()
	s.hub.close()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lab.Snapshot())
}

// GET /api/guidance
func (s *Server) handleGuidance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), hintTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, s.guide.Hint(ctx, s.lab.Guidance()))
}

// GET /api/challenges
func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lab.Challenges())
}

// POST /api/intent
// Body: lab.Intent JSON
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxMessage))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	in, err := lab.DecodeIntent(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := s.lab.Apply(in)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, lab.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /ws
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.hub.add(c) {
		_ = conn.Close()
		return
	}
	go c.writeLoop()

	snap := s.lab.Snapshot()
	if msg, err := encode(Message{Type: MessageSnapshot, Snapshot: &snap}); err == nil {
		s.hub.sendTo(c, msg)
	}
	s.logger.Debug("websocket client connected", "remote", conn.RemoteAddr())

	s.readLoop(c)
}

// readLoop applies intents until the connection fails. Replies to a bad
// intent go to the sender only; state changes reach everyone through the
// lab subscription.
func (s *Server) readLoop(c *client) {
	defer func() {
		s.hub.remove(c)
		s.logger.Debug("websocket client disconnected", "remote", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", "err", err)
			}
			return
		}

		in, err := lab.DecodeIntent(data)
		if err == nil {
			_, err = s.lab.Apply(in)
		}
		if err != nil {
			if msg, encErr := encode(Message{Type: MessageError, Error: err.Error()}); encErr == nil {
				s.hub.sendTo(c, msg)
			}
		}
	}
}

func encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// originChecker accepts same-host requests and the listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if set["*"] || set[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
