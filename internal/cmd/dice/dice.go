// Package dice parses dice service flags and launches the gRPC service.
package dice

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/dicebox/internal/platform/cmd"
	server "github.com/louisbranch/dicebox/internal/services/dice/app"
)

// Config holds dice command configuration.
type Config struct {
	Port int    `env:"DICEBOX_DICE_PORT" envDefault:"8082"`
	Addr string `env:"DICEBOX_DICE_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The dice gRPC server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The dice server listen address (overrides -port)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the dice gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDice, func(ctx context.Context) error {
		if cfg.Addr != "" {
			return server.RunWithAddr(ctx, cfg.Addr)
		}
		return server.Run(ctx, cfg.Port)
	})
}
