// Package server exposes datasets, charts, analyses and exports over a JSON
// HTTP API. All state is held in memory.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/insight"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// MaxUploadBytes bounds a multipart dataset upload.
const MaxUploadBytes = 100 << 20

// Options configure a Server.
type Options struct {
	CORSOrigins []string
	// MaxRows limits rows read per uploaded file; 0 means no limit.
	MaxRows int
	Logger  *slog.Logger
	// Now is used for export timestamps.
	Now func() time.Time
}

// Server holds uploaded datasets and the most recent analysis.
type Server struct {
	analyzer *insight.Analyzer
	opts     Options
	log      *slog.Logger

	mu       sync.RWMutex
	datasets map[string]*entry
	last     *insight.Result

	// busy is held while an analysis runs so submissions never interleave.
	busy sync.Mutex
}

type entry struct {
	ID      string
	Dataset *dataset.Dataset
	Added   time.Time
}

// New returns a Server that analyses with a.
func New(a *insight.Analyzer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		analyzer: a,
		opts:     opts,
		log:      opts.Logger,
		datasets: map[string]*entry{},
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.templates)
		r.Post("/datasets", s.uploadDatasets)
		r.Get("/datasets", s.listDatasets)
		r.Get("/datasets/{id}", s.getDataset)
		r.Get("/datasets/{id}/chart.html", s.chartHTML)
		r.Get("/datasets/{id}/chart.png", s.chartPNG)
		r.Post("/chart", s.chartData)
		r.Post("/analyze", s.analyze)
		r.Post("/export/{format}", s.export)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// AddDataset stores ds under id.
func (s *Server) AddDataset(id string, ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[id] = &entry{ID: id, Dataset: ds, Added: s.opts.Now()}
}

func (s *Server) lookup(ids []string) ([]*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(ids) == 0 {
		out := make([]*dataset.Dataset, 0, len(s.datasets))
		for _, e := range s.sortedLocked() {
			out = append(out, e.Dataset)
		}
		return out, nil
	}
	out := make([]*dataset.Dataset, 0, len(ids))
	for _, id := range ids {
		e, ok := s.datasets[id]
		if !ok {
			return nil, &notFoundError{id: id}
		}
		out = append(out, e.Dataset)
	}
	return out, nil
}

func (s *Server) sortedLocked() []*entry {
	out := make([]*entry, 0, len(s.datasets))
	for _, e := range s.datasets {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

func (s *Server) setLast(res *insight.Result) {
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
}

func (s *Server) lastResult() *insight.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
