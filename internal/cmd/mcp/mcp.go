// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/dicebox/internal/platform/cmd"
	"github.com/louisbranch/dicebox/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	// Addr is the dice gRPC service. Empty rolls in process.
	Addr        string        `env:"DICEBOX_MCP_DICE_ADDR"`
	HTTPAddr    string        `env:"DICEBOX_MCP_HTTP_ADDR"  envDefault:"localhost:8085"`
	Transport   string        `env:"DICEBOX_MCP_TRANSPORT"  envDefault:"stdio"`
	Locale      string        `env:"DICEBOX_LOCALE"         envDefault:"en-US"`
	EvalTimeout time.Duration `env:"DICEBOX_EVAL_TIMEOUT"   envDefault:"50ms"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "dice server address (empty rolls in process)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for tool error messages")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return service.Run(ctx, service.Config{
			GRPCAddr:    cfg.Addr,
			Transport:   service.TransportKind(cfg.Transport),
			HTTPAddr:    cfg.HTTPAddr,
			Locale:      cfg.Locale,
			EvalTimeout: cfg.EvalTimeout,
		})
	})
}
