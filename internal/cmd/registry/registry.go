// Package registry parses registry service flags and launches the service.
package registry

import (
	"context"
	"flag"

	"go.uber.org/zap"

	entrypoint "github.com/louisbranch/mutation-registry/internal/platform/cmd"
	server "github.com/louisbranch/mutation-registry/internal/services/registry/app"
)

// Config holds registry command configuration.
type Config struct {
	Port     int    `env:"MUTATION_REGISTRY_PORT" envDefault:"8095"`
	LogLevel string `env:"MUTATION_REGISTRY_LOG_LEVEL" envDefault:"info"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The registry gRPC server port")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the registry gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	options := entrypoint.RunOptions{LogLevel: cfg.LogLevel}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRegistry, options, func(ctx context.Context, logger *zap.Logger) error {
		return server.Run(ctx, cfg.Port, logger)
	})
}
