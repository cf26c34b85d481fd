// Package server wires the registry runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	registryv1 "github.com/louisbranch/mutation-registry/api/registry/v1"
	"github.com/louisbranch/mutation-registry/internal/platform/config"
	"github.com/louisbranch/mutation-registry/internal/platform/timeouts"
	"github.com/louisbranch/mutation-registry/internal/services/registry/api/grpc/metadata"
	registryservice "github.com/louisbranch/mutation-registry/internal/services/registry/api/grpc/registry"
	"github.com/louisbranch/mutation-registry/internal/services/registry/auth"
	"github.com/louisbranch/mutation-registry/internal/services/registry/domain"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
	registrybadger "github.com/louisbranch/mutation-registry/internal/services/registry/storage/badger"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage/cached"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage/memory"
	registrysqlite "github.com/louisbranch/mutation-registry/internal/services/registry/storage/sqlite"
)

// Storage backends selectable with MUTATION_REGISTRY_STORAGE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

type serverEnv struct {
	StorageBackend string        `env:"MUTATION_REGISTRY_STORAGE_BACKEND" envDefault:"sqlite"`
	DBPath         string        `env:"MUTATION_REGISTRY_DB_PATH"`
	BadgerDir      string        `env:"MUTATION_REGISTRY_BADGER_DIR"`
	CacheTTL       time.Duration `env:"MUTATION_REGISTRY_CACHE_TTL" envDefault:"0s"`
	CopyPolicy     string        `env:"MUTATION_REGISTRY_COPY_POLICY" envDefault:"open"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return serverEnv{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "registry.db")
	}
	if strings.TrimSpace(cfg.BadgerDir) == "" {
		cfg.BadgerDir = filepath.Join("data", "registry-badger")
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	return cfg, nil
}

// Server hosts the registry gRPC API and storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	closer     io.Closer
	logger     *zap.Logger
}

// New creates a configured registry server listening on the provided port.
func New(port int, logger *zap.Logger) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port), logger)
}

// NewWithAddr creates a configured registry server for the provided address.
func NewWithAddr(addr string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	env, err := loadServerEnv()
	if err != nil {
		return nil, err
	}
	policy, err := domain.ParseCopyPolicy(env.CopyPolicy)
	if err != nil {
		return nil, err
	}
	authConfig, err := auth.LoadConfigFromEnv(nil)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	store, closer, err := openStore(env)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	if env.CacheTTL > 0 {
		store = cached.New(store, env.CacheTTL, logger)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			metadata.UnaryServerInterceptor(nil),
			auth.UnaryServerInterceptor(authConfig),
			metadata.AccessLogInterceptor(logger.Named("access")),
		),
	)
	apiService := registryservice.NewService(domain.NewRegistry(store, policy))
	healthServer := health.NewServer()
	registryv1.RegisterMutationRegistryServiceServer(grpcServer, apiService)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(registryv1.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	logger.Info("registry configured",
		zap.String("storage_backend", env.StorageBackend),
		zap.String("copy_policy", string(policy)),
		zap.Duration("cache_ttl", env.CacheTTL),
	)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		closer:     closer,
		logger:     logger,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a registry server until context cancellation.
func Run(ctx context.Context, port int, logger *zap.Logger) error {
	server, err := New(port, logger)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	s.logger.Info("registry server listening", zap.String("addr", s.Addr()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.gracefulStop(timeouts.Shutdown)
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// gracefulStop waits up to limit for in-flight calls, then stops hard.
func (s *Server) gracefulStop(limit time.Duration) {
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-stopped:
	case <-timer.C:
		s.logger.Warn("graceful stop timed out", zap.Duration("limit", limit))
		s.grpcServer.Stop()
		<-stopped
	}
}

// Close releases registry server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			s.logger.Error("close registry store", zap.Error(err))
		}
		s.closer = nil
	}
}

// openStore opens the configured backend. The closer is nil for backends
// without resources to release.
func openStore(env serverEnv) (storage.MutationStore, io.Closer, error) {
	switch env.StorageBackend {
	case BackendSQLite:
		if dir := filepath.Dir(env.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := registrysqlite.Open(env.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open registry sqlite store: %w", err)
		}
		return store, store, nil
	case BackendBadger:
		store, err := registrybadger.Open(env.BadgerDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open registry badger store: %w", err)
		}
		return store, store, nil
	case BackendMemory:
		return memory.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", env.StorageBackend)
	}
}
