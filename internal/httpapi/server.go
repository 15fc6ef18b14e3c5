// Package httpapi serves the liveness endpoint, a JSON view of the current
// counters and the live report feed.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lox/cardcounter/internal/outcome"
	"github.com/lox/cardcounter/internal/tally"
)

// StatusText is the body of the liveness endpoints.
const StatusText = "Bot OK"

const shutdownTimeout = 5 * time.Second

// Snapshotter exposes the counters of the current epoch.
type Snapshotter interface {
	Snapshot() tally.Snapshot
}

// Stats is the /stats response body.
type Stats struct {
	Total    int                       `json:"total"`
	Pairs    map[string]tally.Category `json:"pairs"`
	Winners  map[string]tally.Category `json:"winners"`
	Parities map[string]tally.Category `json:"parities"`
}

// StatsOf converts a snapshot into the response body.
func StatsOf(snap tally.Snapshot) Stats {
	st := Stats{
		Total:    snap.PairTotal(),
		Pairs:    make(map[string]tally.Category, outcome.NumPairs),
		Winners:  make(map[string]tally.Category, outcome.NumWinners),
		Parities: make(map[string]tally.Category, outcome.NumParities),
	}
	for _, p := range outcome.PairOrder {
		st.Pairs[p.String()] = withGames(snap.Pair(p))
	}
	for w := range outcome.NumWinners {
		st.Winners[w.String()] = withGames(snap.Winner(w))
	}
	for p := range outcome.NumParities {
		st.Parities[p.String()] = withGames(snap.Parity(p))
	}
	return st
}

// withGames keeps empty lists as [] in the JSON output.
func withGames(c tally.Category) tally.Category {
	if c.Games == nil {
		c.Games = []int{}
	}
	return c
}

// Server is the HTTP side of the bot.
type Server struct {
	logger *log.Logger
	server *http.Server
}

func NewServer(addr string, stats Snapshotter, hub *Hub, logger *log.Logger) *Server {
	s := &Server{logger: logger.WithPrefix("http")}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(stats, hub),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes(stats Snapshotter, hub *Hub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(StatusText))
	}
	r.Get("/", health)
	r.Get("/health", health)

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(StatsOf(stats.Snapshot())); err != nil {
			s.logger.Error("Failed to encode stats", "error", err)
		}
	})

	if hub != nil {
		r.Get("/ws", hub.ServeHTTP)
	}
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
