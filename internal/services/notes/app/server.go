package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	platformgrpc "github.com/accounting-notes/backend/internal/platform/grpc"
	"github.com/accounting-notes/backend/internal/platform/timeouts"
	notessqlite "github.com/accounting-notes/backend/internal/services/notes/storage/sqlite"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthService is the gRPC health service name reported by the process.
const HealthService = "notes.v1.NotesService"

// Server hosts the notes HTTP API and its gRPC health endpoint.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server
	health       *platformgrpc.HealthServer
	store        *notessqlite.Store
	logger       *zap.Logger
}

// New opens storage, assembles the API and binds both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	handler, err := buildHandler(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}
	health, err := platformgrpc.NewHealthServer(cfg.HealthAddr, HealthService)
	if err != nil {
		_ = httpListener.Close()
		_ = store.Close()
		return nil, err
	}

	return &Server{
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           handler.Routes(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		health: health,
		store:  store,
		logger: logger,
	}, nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// HealthAddr returns the gRPC health listener address.
func (s *Server) HealthAddr() string {
	if s == nil {
		return ""
	}
	return s.health.Addr()
}

// Run creates and serves a notes server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until ctx is cancelled or a listener fails. Health flips to
// NOT_SERVING before HTTP drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	s.logger.Info("notes server listening",
		zap.String("http_addr", s.Addr()),
		zap.String("health_addr", s.HealthAddr()),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.health.Serve(groupCtx)
	})
	group.Go(func() error {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.health.SetServing(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}
		return nil
	})
	err := group.Wait()
	s.logger.Info("notes server stopped")
	return err
}

// Close releases listeners and storage.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close notes store", zap.Error(err))
		}
		s.store = nil
	}
}
