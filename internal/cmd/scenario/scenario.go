// Package scenario parses scenario command flags and runs Lua scenarios.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"time"

	entrypoint "github.com/louisbranch/dicebox/internal/platform/cmd"
	"github.com/louisbranch/dicebox/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	// GRPCAddr is the dice service. Empty evaluates in process.
	GRPCAddr    string        `env:"DICEBOX_SCENARIO_DICE_ADDR"`
	Scenario    string        `env:"DICEBOX_SCENARIO_FILE"`
	Assertions  string        `env:"DICEBOX_SCENARIO_ASSERT"  envDefault:"strict"`
	Verbose     bool          `env:"DICEBOX_SCENARIO_VERBOSE"`
	Timeout     time.Duration `env:"DICEBOX_SCENARIO_TIMEOUT" envDefault:"10s"`
	Locale      string        `env:"DICEBOX_LOCALE"           envDefault:"en-US"`
	EvalTimeout time.Duration `env:"DICEBOX_EVAL_TIMEOUT"     envDefault:"50ms"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "dice service address (empty evaluates in process)")
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.StringVar(&cfg.Assertions, "assert", cfg.Assertions, "assertion mode: strict or log")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}
	mode, err := scenario.ParseAssertionMode(cfg.Assertions)
	if err != nil {
		return err
	}

	logger := log.New(errOut, "", 0)
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScenario, func(ctx context.Context) error {
		if err := scenario.RunFile(ctx, scenario.Config{
			GRPCAddr:    cfg.GRPCAddr,
			Timeout:     cfg.Timeout,
			Assertions:  mode,
			Verbose:     cfg.Verbose,
			Logger:      logger,
			Locale:      cfg.Locale,
			EvalTimeout: cfg.EvalTimeout,
		}, cfg.Scenario); err != nil {
			return err
		}
		_, err := io.WriteString(out, "ok\n")
		return err
	})
}
