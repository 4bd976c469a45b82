package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/kumarlokesh/autocomplete/internal/service"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20 // 1 MiB

// Service is the part of the autocomplete service the API needs.
type Service interface {
	Search(prefix string, limit int) ([]string, error)
	AddWord(ctx context.Context, word string) error
	DeleteWord(ctx context.Context, word string) error
	Stats() service.Stats
	Ping(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the HTTP API server
type Server struct {
	svc    Service
	server *http.Server
	opts   Options
	logger zerolog.Logger

	mu         sync.Mutex
	listenAddr string
}

// wordRequest is the body of add and delete requests.
type wordRequest struct {
	Text string `json:"text"`
}

// NewServer creates a new API server
func NewServer(addr string, svc Service, opts Options, logger zerolog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		svc:    svc,
		opts:   opts,
		logger: logger.With().Str("component", "api").Logger(),
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", s.search).Methods(http.MethodGet)
	api.HandleFunc("/add-word", s.addWord).Methods(http.MethodPost)
	api.HandleFunc("/delete-word", s.deleteWord).Methods(http.MethodDelete)
	api.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	api.HandleFunc("/reload", s.reload).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Ensure the address includes a host if not specified
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort("0.0.0.0", addr)
	}

	// Middleware wraps the router rather than using r.Use so that preflight
	// and unmatched requests are covered too.
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.logRequests(s.cors(s.limitBody(r))),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return s
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the address the server is listening on once started, or the
// configured address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listenAddr != "" {
		return s.listenAddr
	}
	return s.server.Addr
}

// Start starts the HTTP server and blocks until the server is shut down
func (s *Server) Start() error {
	// Create a listener first to catch any errors early
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.listenAddr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Server listening")

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server")
	return s.server.Shutdown(ctx)
}

// Helper functions for HTTP responses
func (s *Server) respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}

// HTTP Handlers

// search handles GET /api/search?q=<prefix>&limit=<n>
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	words, err := s.svc.Search(query.Get("q"), limit)
	switch {
	case errors.Is(err, service.ErrInvalidLimit):
		s.respondError(w, http.StatusBadRequest, "Invalid limit")
		return
	case errors.Is(err, service.ErrInvalidWord):
		s.respondError(w, http.StatusBadRequest, "Invalid prefix")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Search failed")
		s.respondError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	s.respond(w, http.StatusOK, words)
}

// addWord handles POST /api/add-word
func (s *Server) addWord(w http.ResponseWriter, r *http.Request) {
	word, ok := s.decodeWord(w, r)
	if !ok {
		return
	}

	if err := s.svc.AddWord(r.Context(), word); err != nil {
		if errors.Is(err, service.ErrInvalidWord) {
			s.respondError(w, http.StatusBadRequest, "Invalid word")
			return
		}
		s.logger.Error().Err(err).Str("word", word).Msg("Failed to add word")
		s.respondError(w, http.StatusInternalServerError, "Failed to add word")
		return
	}

	s.respond(w, http.StatusCreated, map[string]string{"message": "Word added successfully"})
}

// deleteWord handles DELETE /api/delete-word
func (s *Server) deleteWord(w http.ResponseWriter, r *http.Request) {
	word, ok := s.decodeWord(w, r)
	if !ok {
		return
	}

	if err := s.svc.DeleteWord(r.Context(), word); err != nil {
		if errors.Is(err, service.ErrInvalidWord) {
			s.respondError(w, http.StatusBadRequest, "Invalid word")
			return
		}
		s.logger.Error().Err(err).Str("word", word).Msg("Failed to delete word")
		s.respondError(w, http.StatusInternalServerError, "Failed to delete word")
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"message": "Word deleted successfully"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.svc.Stats())
}

// reload handles POST /api/reload, rebuilding the index from the store.
func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reload(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Reload failed")
		s.respondError(w, http.StatusInternalServerError, "Failed to reload index")
		return
	}

	s.respond(w, http.StatusOK, map[string]interface{}{
		"message": "Index reloaded",
		"words":   s.svc.Stats().Words,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Health check failed")
		s.respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeWord reads the {"text": ...} body, writing the error response itself
// when the body is unusable.
func (s *Server) decodeWord(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req wordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return "", false
		}
		s.respondError(w, http.StatusBadRequest, "Word is required")
		return "", false
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "Word is required")
		return "", false
	}
	return req.Text, true
}
