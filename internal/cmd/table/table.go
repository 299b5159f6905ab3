// Package table parses table command flags and starts the roll rooms.
package table

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/dicebox/internal/platform/cmd"
	"github.com/louisbranch/dicebox/internal/platform/discovery"
	server "github.com/louisbranch/dicebox/internal/services/table/app"
)

// Config holds table command configuration.
type Config struct {
	HTTPAddr string `env:"DICEBOX_TABLE_HTTP_ADDR" envDefault:":8086"`
	// DiceAddr is the dice gRPC service. Empty rolls in process.
	DiceAddr    string        `env:"DICEBOX_TABLE_DICE_ADDR"`
	EvalTimeout time.Duration `env:"DICEBOX_EVAL_TIMEOUT"    envDefault:"50ms"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "table HTTP listen address")
	fs.StringVar(&cfg.DiceAddr, "dice-addr", cfg.DiceAddr, fmt.Sprintf("dice service gRPC address such as %s (empty rolls in process)", discovery.DefaultGRPCAddr(discovery.ServiceDice)))
	fs.DurationVar(&cfg.EvalTimeout, "timeout", cfg.EvalTimeout, "evaluation budget for in-process rolls")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the table app and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTable, func(ctx context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:    cfg.HTTPAddr,
			DiceAddr:    cfg.DiceAddr,
			EvalTimeout: cfg.EvalTimeout,
		}); err != nil {
			return fmt.Errorf("serve table: %w", err)
		}
		return nil
	})
}
