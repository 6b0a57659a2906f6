// Package server implements the catalog admin HTTP API.
//
// Every /api route requires "Authorization: Bearer <token>". Errors are
// JSON objects {"code", "message"} with the status derived from the error
// code.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/pipeline"
	"github.com/ponchocards/ponchocards/pkg/store"
)

const (
	shutdownTimeout = 10 * time.Second
	readTimeout     = 30 * time.Second
	writeTimeout    = 5 * time.Minute
)

// Config wires a Server.
type Config struct {
	Store  store.Store
	Runner *pipeline.Runner
	// Deck shapes every generated deck. Formats are ignored; the API
	// always renders PDF.
	Deck        pipeline.Options
	AdminToken  string
	MaxUploadMB int
	Logger      *log.Logger
}

// Server serves the admin API.
type Server struct {
	store     store.Store
	runner    *pipeline.Runner
	deck      pipeline.Options
	token     string
	maxUpload int64
	logger    *log.Logger
	now       func() time.Time
}

// New validates cfg and creates a server. An empty admin token is refused
// so that the API is never served unauthenticated.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "server: store is required")
	}
	if cfg.AdminToken == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"server: admin token is required (set server.admin_token or PONCHOCARDS_ADMIN_TOKEN)")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	opts := cfg.Deck
	opts.Formats = []string{pipeline.DefaultFormat}
	opts.Logger = cfg.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Server{
		store:     cfg.Store,
		runner:    cfg.Runner,
		deck:      opts,
		token:     cfg.AdminToken,
		maxUpload: int64(cfg.MaxUploadMB) << 20,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", s.handleListSongs)
			r.Post("/", s.handleCreateSong)
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Get("/{id}", s.handleGetSong)
			r.Put("/{id}", s.handleUpdateSong)
			r.Delete("/{id}", s.handleDeleteSong)
		})
		r.Get("/stats", s.handleStats)
		r.Post("/deck", s.handleDeckUpload)
		r.Get("/deck/catalog", s.handleDeckCatalog)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Code:    "METHOD_NOT_ALLOWED",
			Message: r.Method + " is not allowed on " + r.URL.Path,
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("admin api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down admin api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
