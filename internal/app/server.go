// Package app wires the Catalog, ConnectionPool, and Router into a
// runnable HTTP server, following the teacher's cmd/main.go +
// internal/app.NewServer construction-then-Run shape, generalized from
// a single shared Postgres handle to a startup inspection scan plus a
// bounded SQLite worker pool.
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Esaslow/datasette/internal/catalog"
	"github.com/Esaslow/datasette/internal/config"
	"github.com/Esaslow/datasette/internal/dbpool"
	"github.com/Esaslow/datasette/internal/web"
)

// shutdownTimeout bounds how long Run waits for in-flight requests to
// drain after a shutdown signal, matching the teacher's 5s budget.
const shutdownTimeout = 5 * time.Second

type Server struct {
	httpServer *http.Server
	pool       *dbpool.Pool
	log        *zap.Logger
}

// NewServer runs the Inspector over opts.Paths, builds the Catalog and
// ConnectionPool, and wires the HTTP router. It returns a
// *apperr.Error (KindStartup) if inspection fails — callers should
// treat that as fatal, never serve with a partial Catalog.
func NewServer(opts config.Options, log *zap.Logger) (*Server, error) {
	cat, err := catalog.Inspect(opts.Paths, log)
	if err != nil {
		return nil, err
	}

	pool := dbpool.New(cat, opts, log)
	handlers := web.New(cat, pool, opts, nil, log)
	router := web.NewRouter(handlers, log)

	return &Server{
		httpServer: &http.Server{
			Addr:    opts.Addr,
			Handler: router,
		},
		pool: pool,
		log:  log,
	}, nil
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the pool's connections.
func (s *Server) Run() error {
	go func() {
		s.log.Info("listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.pool.Close()
	return err
}
