package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"appreviews/internal/batch"
	"appreviews/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultQueueSize bounds the number of jobs waiting for the worker.
const DefaultQueueSize = 32

// Runner executes one batch. *batch.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, apps []config.App) (*batch.Summary, error)
}

// Server exposes batch runs as jobs over HTTP. Jobs are executed one at a
// time by a single worker in submission order.
type Server struct {
	router   chi.Router
	runner   Runner
	gatherer prometheus.Gatherer
	queue    chan string

	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

type jobEntry struct {
	status *JobStatus
	apps   []config.App
	cancel context.CancelFunc // set while running
}

// NewServer wires routes and middlewares. gatherer backs GET /metrics and
// may be nil to use the default registry.
func NewServer(runner Runner, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router:   chi.NewRouter(),
		runner:   runner,
		gatherer: gatherer,
		queue:    make(chan string, DefaultQueueSize),
		jobs:     make(map[string]*jobEntry),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(chimw.Recoverer)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.createJob)
		r.Get("/{id}", s.getJob)
		r.Delete("/{id}", s.cancelJob)
	})
}

// Handler returns the router with all middlewares applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the job worker. It returns immediately; the worker stops
// when ctx is done, cancelling the job it is running.
func (s *Server) Start(ctx context.Context) {
	go s.work(ctx)
}

// Run starts the worker and serves HTTP on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP server running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loggingMiddleware logs method, path, status and latency of every request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logrus.Infof("%s %s | status=%d time=%s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
