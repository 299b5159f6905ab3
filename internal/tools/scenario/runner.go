package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"

	platformgrpc "github.com/louisbranch/dicebox/internal/platform/grpc"
	"github.com/louisbranch/dicebox/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicebox/internal/services/shared/roller"
)

// Config controls scenario execution.
type Config struct {
	// GRPCAddr is the dice service address. Empty evaluates in process.
	GRPCAddr   string
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
	// Locale selects the language of error messages from the dice service.
	Locale string
	// EvalTimeout bounds in-process evaluations.
	EvalTimeout time.Duration
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		Assertions:  AssertionStrict,
		EvalTimeout: timeouts.EvalBudget,
	}
}

// Runner executes Lua scenarios against the dice engine.
type Runner struct {
	conn       *grpc.ClientConn
	dice       Dice
	assertions Assertions
	logger     *log.Logger
	verbose    bool
	timeout    time.Duration
}

// NewRunner prepares a scenario runner, connecting to the dice service when
// cfg.GRPCAddr is set.
func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		budget := cfg.EvalTimeout
		if budget <= 0 {
			budget = timeouts.EvalBudget
		}
		return newRunnerWithDeps(cfg, runnerDeps{
			dice: diceservice.Local{Roller: roller.New(roller.Config{Budget: budget})},
		})
	}

	logf := func(format string, args ...any) {
		if cfg.Verbose && cfg.Logger != nil {
			cfg.Logger.Printf(format, args...)
		}
	}
	conn, err := platformgrpc.Connect(ctx, cfg.GRPCAddr, timeouts.GRPCDial, logf)
	if err != nil {
		return nil, fmt.Errorf("connect to dice server at %s: %w", cfg.GRPCAddr, err)
	}

	r, err := newRunnerWithDeps(cfg, runnerDeps{dice: diceservice.NewClient(conn, cfg.Locale)})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	r.conn = conn
	return r, nil
}

// newRunnerWithDeps builds a Runner from pre-built dependencies.
// Config defaults (logger, timeout) are applied here so they are testable.
func newRunnerWithDeps(cfg Config, deps runnerDeps) (*Runner, error) {
	if deps.dice == nil {
		return nil, errors.New("dice evaluator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Runner{
		dice:       deps.dice,
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
	}, nil
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}

	runner, err := NewRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps in order.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	state := &scenarioState{}
	unmetBefore := r.assertions.Unmet()

	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, state, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}

	if unmet := r.assertions.Unmet() - unmetBefore; unmet > 0 {
		r.logger.Printf("scenario done: %s (%d unmet expectations)", scenario.Name, unmet)
		return nil
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
