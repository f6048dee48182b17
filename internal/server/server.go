package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
	"git.home.luguber.info/inful/blogkeeper/internal/index"
	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
)

// DefaultAddr is where the authoring server listens unless configured
// otherwise.
const DefaultAddr = ":1313"

// Options configures the authoring server.
type Options struct {
	Addr           string
	MetricsHandler http.Handler // nil disables /metrics
	Rescan         func()       // nil disables POST /api/rescan
}

// Server is the authoring HTTP server.
type Server struct {
	opts         Options
	store        *Store
	idx          *index.Index // nil when the index is disabled
	hub          *Hub
	rescan       func()
	errorAdapter *kerrors.HTTPErrorAdapter
	startTime    time.Time

	httpServer *http.Server
}

// New creates the server. idx may be nil.
func New(opts Options, store *Store, idx *index.Index, hub *Hub) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	return &Server{
		opts:         opts,
		store:        store,
		idx:          idx,
		hub:          hub,
		rescan:       opts.Rescan,
		errorAdapter: kerrors.NewHTTPErrorAdapter(slog.Default()),
		startTime:    time.Now(),
	}
}

// Hub returns the event hub so the scan loop can broadcast.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/posts", s.handlePosts)
	mux.HandleFunc("GET /api/posts/{slug}", s.handlePostDetail)
	mux.HandleFunc("GET /api/tags", s.taxonomyHandler("tags"))
	mux.HandleFunc("GET /api/series", s.taxonomyHandler("series"))
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/issues", s.handleIssues)
	mux.HandleFunc("GET /api/links/broken", s.handleBrokenLinks)
	mux.HandleFunc("POST /api/rescan", s.handleRescan)
	mux.Handle("GET /events", s.hub)
	mux.HandleFunc("GET /preview/{slug}", s.handlePreview)
	mux.HandleFunc("GET /", s.handleRoutes)

	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}

	return chain(slog.Default(), s.errorAdapter)(mux)
}

// Start binds the listen address and begins serving. The bind happens
// synchronously so an occupied port fails here, not in a goroutine log
// line.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return kerrors.Wrap(err, kerrors.CategoryServer, kerrors.SeverityFatal,
			fmt.Sprintf("cannot listen on %s", s.opts.Addr))
	}

	s.httpServer = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // the SSE stream stays open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Authoring server error", logfields.Error(err))
		}
	}()

	slog.Info("Authoring server started", slog.String("addr", s.opts.Addr))
	return nil
}

// Stop drains connections, disconnects event clients, and shuts down.
func (s *Server) Stop(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Shutdown()
	}
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("Authoring server stopped")
	return nil
}

// Addr reports the configured listen address.
func (s *Server) Addr() string { return s.opts.Addr }
