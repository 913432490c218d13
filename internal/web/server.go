package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/mailsift/internal/collect"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/logx"
	"github.com/hpungsan/mailsift/internal/watch"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures the web UI.
type Options struct {
	Version string
	Bind    string
	Port    int
	// Scheduler, when set, is started or stopped whenever auto_scan changes.
	Scheduler *watch.Scheduler
	// BaseContext bounds the scheduler's lifetime. Defaults to Background.
	BaseContext context.Context
}

// NewServer creates and configures the HTTP server for the mailsift web UI.
func NewServer(db *sql.DB, cfg *config.Config, sink *collect.Sink, opts Options) (*http.Server, error) {
	h, err := newHandlers(db, cfg, sink, opts)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with the base context, which closes open event streams.
		BaseContext: func(net.Listener) context.Context { return h.baseCtx },
	}, nil
}

func newHandlers(db *sql.DB, cfg *config.Config, sink *collect.Sink, opts Options) (*Handlers, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	base := opts.BaseContext
	if base == nil {
		base = context.Background()
	}

	log := logx.Component("web")
	return &Handlers{
		db:        db,
		cfg:       cfg,
		sink:      sink,
		scheduler: opts.Scheduler,
		baseCtx:   base,
		renderer:  NewRenderer(templateSub, opts.Version, log),
		log:       log,
	}, nil
}

func (h *Handlers) routes() http.Handler {
	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/emails", http.StatusFound)
	})
	mux.HandleFunc("GET /emails", h.HandleEmails)
	mux.HandleFunc("GET /emails/current", h.HandleCurrent)
	mux.HandleFunc("GET /emails/copy", h.HandleCopy)
	mux.HandleFunc("GET /emails/download", h.HandleDownload)
	mux.HandleFunc("POST /emails/clear", h.HandleClear)
	mux.HandleFunc("GET /scan", h.HandleScanForm)
	mux.HandleFunc("POST /scan", h.HandleScan)
	mux.HandleFunc("GET /settings", h.HandleSettings)
	mux.HandleFunc("POST /settings", h.HandleUpdateSettings)
	mux.HandleFunc("GET /stats", h.HandleStats)
	mux.HandleFunc("GET /events", h.HandleEvents)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Wrap with security headers
	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and shuts it down gracefully once ctx ends.
// Callers usually derive ctx from signal.NotifyContext for SIGINT/SIGTERM.
func Run(ctx context.Context, srv *http.Server) error {
	log := logx.Component("web")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Msgf("mailsift UI running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
