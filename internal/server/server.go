package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/explode/pkg/events"
	"github.com/matzehuels/explode/pkg/observability"
	"github.com/matzehuels/explode/pkg/playback"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// Defaults applied by [New].
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 64 << 10
	DefaultTimeout      = 10 * time.Second
	shutdownGrace       = 5 * time.Second
)

// History looks up the recorded events of one request.
// [events.Recorder] and the mongosink archive both implement it.
type History interface {
	History(ctx context.Context, requestID string) ([]events.Record, error)
}

// Options configures a [Server].
type Options struct {
	Addr         string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Playback controls the tick loop started by Run.
	Playback playback.Options

	// History backs GET /v1/events/{id}. Nil disables the endpoint.
	History History

	Logger *log.Logger
}

// Server wraps a scheduler with an HTTP control API.
type Server struct {
	mu      sync.Mutex
	sched   *scheduler.Scheduler
	opts    Options
	log     *log.Logger
	started time.Time
	router  chi.Router

	listener net.Listener
}

// New builds a server around sched. The scheduler must not be used by
// anything else while the server runs.
func New(sched *scheduler.Scheduler, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{
		sched:   sched,
		opts:    opts,
		log:     opts.Logger,
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler. Tests use it with httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/explode", s.handleExplode)
		r.Post("/implode", s.handleImplode)
		r.Get("/status", s.handleStatus)
		r.Get("/parts", s.handleParts)
		r.Get("/parts/{name}", s.handlePart)
		r.Get("/events/{id}", s.handleEvents)
	})
	return r
}

// observe reports every request to the HTTP hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
	})
}

// Listen binds the TCP listener. Run calls it when needed; calling it first
// lets callers learn the bound address (useful with port 0).
func (s *Server) Listen() (net.Addr, error) {
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	l, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return nil, err
	}
	s.listener = l
	return l.Addr(), nil
}

// Run serves HTTP and ticks the scheduler until ctx is cancelled, then shuts
// the HTTP server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	driver := &playback.Driver{
		Scheduler: s.sched,
		Locker:    &s.mu,
		Options:   s.opts.Playback,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", "addr", addr.String())
		if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return driver.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
