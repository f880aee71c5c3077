// Package server runs the HTTP API as a long-lived process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"memgraph/application/commands"
	"memgraph/infrastructure/di"
	"memgraph/infrastructure/workspace"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server serves the router and, when enabled, reindexes on workspace edits.
type Server struct {
	container *di.Container
	srv       *http.Server
	watcher   *workspace.Watcher
}

// New builds the HTTP server from a wired container
func New(container *di.Container) *Server {
	handler := container.Router.Setup()
	if container.Tracer.Enabled() {
		handler = xray.Handler(xray.NewFixedSegmentNamer("memgraph"), handler)
	}

	return &Server{
		container: container,
		srv: &http.Server{
			Addr:         container.Config.ServerAddress,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}
}

// Run listens until ctx is cancelled and then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	logger := s.container.Logger
	cfg := s.container.Config

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	if err := s.startWatcher(ctx); err != nil {
		ln.Close()
		return err
	}
	defer s.stopWatcher()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server",
			zap.String("address", ln.Addr().String()),
			zap.String("environment", cfg.Environment),
			zap.String("workspace", s.container.Layout.Root),
		)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) startWatcher(ctx context.Context) error {
	cfg := s.container.Config
	if !cfg.EnableWatcher {
		return nil
	}
	if s.container.Reindexer == nil {
		s.container.Logger.Info("Workspace watcher skipped, index disabled")
		return nil
	}

	w, err := workspace.NewWatcher(s.container.Layout, cfg.WatchDebounce, func() {
		s.reindex(ctx, "watch")
	}, s.container.Logger)
	if err != nil {
		return fmt.Errorf("create workspace watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start workspace watcher: %w", err)
	}
	s.watcher = w
	return nil
}

func (s *Server) stopWatcher() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

func (s *Server) reindex(ctx context.Context, trigger string) {
	ctx, cancel := context.WithTimeout(ctx, s.container.Config.ReindexTimeout)
	defer cancel()

	if _, err := s.container.CommandBus.Send(ctx, commands.ReindexCommand{Trigger: trigger}); err != nil {
		s.container.Logger.Warn("Workspace reindex failed", zap.String("trigger", trigger), zap.Error(err))
	}
}
