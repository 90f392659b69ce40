package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/elonfeng/mindshare/internal/metrics"
	"github.com/elonfeng/mindshare/pkg/mindshare"
	"github.com/elonfeng/mindshare/pkg/source"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Store is the read side of the post store the server reports on.
type Store interface {
	Ping(ctx context.Context) error
	CountPosts(ctx context.Context) (map[source.SourceType]int, error)
}

// Server provides the HTTP API.
type Server struct {
	store   Store
	service *mindshare.Service
	logger  *zerolog.Logger
	port    int
}

// New creates a new HTTP server.
func New(s Store, service *mindshare.Service, logger *zerolog.Logger, port int) *Server {
	if port == 0 {
		port = 8080
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		store:   s,
		service: service,
		logger:  logger,
		port:    port,
	}
}

// Handler returns the routed handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/sources", s.handleSources)
	mux.Handle("/metrics", promhttp.Handler())
	return s.withRequestID(mux)
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:contextcheck // parent is already cancelled
	}()

	s.logger.Info().Int("port", s.port).Msg("mindshare server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLeaderboard always answers 200 with a JSON array. Failures show up
// as an empty array; the cause is only logged.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	period := mindshare.ParsePeriod(r.URL.Query().Get("period"))
	if s.service == nil {
		metrics.ObserveLeaderboard(string(period), string(mindshare.OutcomeSourceUnavailable), 0)
		writeJSON(w, http.StatusOK, []mindshare.Entry{})
		return
	}

	res := s.service.Leaderboard(r.Context(), period)
	metrics.ObserveLeaderboard(string(period), string(res.Outcome), len(res.Entries))
	if res.Err != nil {
		s.logger.Error().Err(res.Err).
			Str("request_id", requestID(r)).
			Str("period", string(period)).
			Msg("leaderboard failed")
	}

	writeJSON(w, http.StatusOK, res.Entries)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store not configured"})
		return
	}

	counts, err := s.store.CountPosts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type sourceInfo struct {
		Name  string `json:"name"`
		Posts int    `json:"posts"`
	}

	infos := make([]sourceInfo, 0, len(source.AllSourceTypes()))
	for _, st := range source.AllSourceTypes() {
		infos = append(infos, sourceInfo{Name: string(st), Posts: counts[st]})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  infos,
		"count": len(infos),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
