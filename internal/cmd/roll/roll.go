// Package roll runs the interactive dice notation REPL.
package roll

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	entrypoint "github.com/louisbranch/dicebox/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/dicebox/internal/platform/grpc"
	"github.com/louisbranch/dicebox/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
)

const (
	prompt      = "> "
	historyFile = ".dicebox_history"
)

// Config holds roll command configuration.
type Config struct {
	EvalTimeout time.Duration `env:"DICEBOX_EVAL_TIMEOUT" envDefault:"50ms"`
	GRPCAddr    string        `env:"DICEBOX_ROLL_GRPC_ADDR"`
	Locale      string        `env:"DICEBOX_LOCALE" envDefault:"en-US"`
	HistoryPath string        `env:"DICEBOX_ROLL_HISTORY"`

	Seed     int64
	HasSeed  bool
	KeepVars bool
	Expr     string
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.Func("seed", "seed the session so every roll replays", func(raw string) error {
		seed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("seed must be an integer: %w", err)
		}
		cfg.Seed = seed
		cfg.HasSeed = true
		return nil
	})
	fs.BoolVar(&cfg.KeepVars, "keep-vars", cfg.KeepVars, "keep variables between lines")
	fs.StringVar(&cfg.Expr, "e", cfg.Expr, "evaluate one expression and exit")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "roll against a remote dice service")
	fs.DurationVar(&cfg.EvalTimeout, "timeout", cfg.EvalTimeout, "evaluation time budget")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "language for help and error text")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = timeouts.EvalBudget
	}
	return cfg, nil
}

// Run evaluates cfg.Expr once, or reads lines from the terminal until quit
// or end of input.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	session, err := NewSession(SessionConfig{
		Backend:  backend,
		Seed:     cfg.Seed,
		HasSeed:  cfg.HasSeed,
		KeepVars: cfg.KeepVars,
		Locale:   cfg.Locale,
		Out:      out,
		ErrOut:   errOut,
	})
	if err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Expr) != "" {
		_, err := session.Handle(ctx, cfg.Expr)
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	historyPath := cfg.HistoryPath
	if historyPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			historyPath = filepath.Join(home, historyFile)
		}
	}
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(historyPath)
			if err != nil {
				log.Printf("save history: %v", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	return Loop(ctx, linerReader{ln}, session)
}

// LineReader reads one line after showing a prompt.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// Loop feeds lines from r to the session until quit, end of input or ctx
// ends. Evaluation errors are reported by the session and do not stop it.
func Loop(ctx context.Context, r LineReader, session *Session) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		quit, _ := session.Handle(ctx, line)
		if quit {
			return nil
		}
		if h, ok := r.(historyAppender); ok && strings.TrimSpace(line) != "" {
			h.AppendHistory(line)
		}
	}
}

type historyAppender interface {
	AppendHistory(item string)
}

type linerReader struct {
	*liner.State
}

func openBackend(ctx context.Context, cfg Config) (Backend, func(), error) {
	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		return LocalBackend{Budget: cfg.EvalTimeout}, func() {}, nil
	}
	conn, err := platformgrpc.Connect(ctx, cfg.GRPCAddr, timeouts.GRPCDial, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect dice service: %w", err)
	}
	closeConn := func() {
		if err := conn.Close(); err != nil {
			log.Printf("close dice connection: %v", err)
		}
	}
	return RemoteBackend{Client: diceservice.NewClient(conn, cfg.Locale)}, closeConn, nil
}
