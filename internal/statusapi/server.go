// Package statusapi exposes a running price coordinator over HTTP.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/journal"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/quote"
)

// Coordinator is the part of *quote.Coordinator the API uses.
type Coordinator interface {
	SessionID() string
	State() quote.State
	Refetch() error
}

// Options configures a Server. Registry and Journal are optional.
type Options struct {
	Registry *prometheus.Registry
	Journal  *journal.Store
	Logger   *slog.Logger
}

// Server serves:
//
//	GET  /healthz
//	GET  /state
//	POST /refetch
//	GET  /attempts?limit=N   (journal enabled)
//	GET  /metrics            (metrics enabled)
type Server struct {
	coord  Coordinator
	opts   Options
	errs   *ferrors.HTTPErrorAdapter
	router *chi.Mux
	server *http.Server
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	SessionID string      `json:"session_id"`
	State     quote.State `json:"state"`
}

// NewServer builds the router; call Start to listen on addr.
func NewServer(addr string, coord Coordinator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		coord:  coord,
		opts:   opts,
		errs:   ferrors.NewHTTPErrorAdapter(opts.Logger),
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/state", s.handleState)
	s.router.Post("/refetch", s.handleRefetch)
	if s.opts.Journal != nil {
		s.router.Get("/attempts", s.handleAttempts)
	}
	if s.opts.Registry != nil {
		s.router.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens and serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "status API listen failed").
			WithContext("addr", s.server.Addr).
			Build()
	}
	s.opts.Logger.Info("Status API listening", logfields.URL("http://"+ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "status API failed").Build()
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "session_id": s.coord.SessionID()})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{SessionID: s.coord.SessionID(), State: s.coord.State()})
}

func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Refetch(); err != nil {
		s.errs.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StateResponse{SessionID: s.coord.SessionID(), State: s.coord.State()})
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errs.WriteErrorResponse(w, r, ferrors.ValidationError("limit must be a positive integer").
				WithContext("limit", raw).
				Build())
			return
		}
		limit = n
	}
	entries, err := s.opts.Journal.List(r.Context(), journal.Query{SessionID: s.coord.SessionID(), Limit: limit})
	if err != nil {
		s.errs.WriteErrorResponse(w, r, err)
		return
	}
	out := make([]attemptJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, newAttemptJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

type attemptJSON struct {
	Sequence     uint64     `json:"sequence"`
	Trigger      string     `json:"trigger"`
	ConfigDigest string     `json:"config_digest"`
	IssuedAt     time.Time  `json:"issued_at"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	Outcome      string     `json:"outcome,omitempty"`
	DurationMS   int64      `json:"duration_ms,omitempty"`
	RequestID    string     `json:"request_id,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func newAttemptJSON(e journal.Entry) attemptJSON {
	a := attemptJSON{
		Sequence:     e.Sequence,
		Trigger:      e.Trigger,
		ConfigDigest: e.ConfigDigest,
		IssuedAt:     e.IssuedAt,
		Outcome:      e.Outcome,
		DurationMS:   e.Duration.Milliseconds(),
		RequestID:    e.RequestID,
		Error:        e.Error,
	}
	if e.Settled() {
		t := e.SettledAt
		a.SettledAt = &t
	}
	return a
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
