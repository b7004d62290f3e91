// Package web serves the dashboard as server-rendered HTML. Every page is a
// GET that re-renders from the backend and the session; every user action
// is a form POST that dispatches one intent and redirects back.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/hakim/vulntriage/internal/app"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/hakim/vulntriage/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "vt_session"

// maxUploadBytes caps a multipart import request.
const maxUploadBytes = 64 << 20

// Sessions creates and looks up view-state sessions.
type Sessions interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
}

// Exporter streams the backend's report export.
type Exporter interface {
	ExportReport(ctx context.Context, id int, includeStatus bool) (*apiclient.Download, error)
}

// Options configures a Server
type Options struct {
	App      *app.App
	Sessions Sessions
	Exporter Exporter
	Metrics  *telemetry.Metrics
	Logger   *logrus.Logger

	// NoticeTTL is how long notices stay on screen; defaults to 3s.
	NoticeTTL time.Duration

	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// Server is the dashboard's HTTP handler set.
type Server struct {
	app      *app.App
	sessions Sessions
	exporter Exporter
	metrics  *telemetry.Metrics
	log      *logrus.Logger
	pages    map[string]*template.Template
	secure   bool
	noticeMS int64
}

// New parses the embedded templates and builds a Server.
func New(opts Options) (*Server, error) {
	if opts.App == nil || opts.Sessions == nil {
		return nil, errors.New("web: app and sessions are required")
	}

	pages, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web: parsing templates: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	noticeTTL := opts.NoticeTTL
	if noticeTTL <= 0 {
		noticeTTL = 3 * time.Second
	}

	return &Server{
		app:      opts.App,
		sessions: opts.Sessions,
		exporter: opts.Exporter,
		metrics:  opts.Metrics,
		log:      logger,
		pages:    pages,
		secure:   opts.SecureCookie,
		noticeMS: noticeTTL.Milliseconds(),
	}, nil
}

// Handler returns the routed handler with session and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.withSession(s.handleDashboard))
	mux.HandleFunc("GET /reports", s.withSession(s.handleReports))
	mux.HandleFunc("POST /reports/search", s.withSession(s.handleSearch))
	mux.HandleFunc("POST /reports/reset", s.withSession(s.handleReset))
	mux.HandleFunc("GET /reports/{id}", s.withSession(s.handleDetail))
	mux.HandleFunc("GET /reports/{id}/export", s.withSession(s.handleExport))
	mux.HandleFunc("POST /reports/{id}/{action}", s.withSession(s.handleDetailAction))
	mux.HandleFunc("POST /import", s.withSession(s.handleImport))
	mux.HandleFunc("POST /import/open", s.withSession(s.handleImportOpen))
	mux.HandleFunc("POST /modals/close", s.withSession(s.handleCloseModals))
	mux.HandleFunc("POST /notices/{id}/dismiss", s.withSession(s.handleDismiss))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.logRequests(mux)
}

// ServeOptions are the listener settings for Run.
type ServeOptions struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// OnListen is called with the bound address once the listener is up.
	OnListen func(addr string)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, opts ServeOptions) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", opts.Addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}

	if opts.OnListen != nil {
		opts.OnListen(ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
