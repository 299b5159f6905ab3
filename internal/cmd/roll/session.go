package roll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/text/message"

	"github.com/louisbranch/dicebox/internal/dice"
	"github.com/louisbranch/dicebox/internal/dice/format"
	"github.com/louisbranch/dicebox/internal/dice/value"
	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
	"github.com/louisbranch/dicebox/internal/platform/i18n/catalog"
	"github.com/louisbranch/dicebox/internal/random"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
)

// Rolled is one evaluated line. Value is nil when the backend only returns
// the rendered form.
type Rolled struct {
	Display string
	Value   value.Deep
}

// Backend evaluates lines for a session.
type Backend interface {
	Roll(ctx context.Context, expr string, seed int64, env *value.Env) (Rolled, error)
	Explain(ctx context.Context, expr string) (string, error)
	Operators(ctx context.Context) (string, error)
}

// LocalBackend evaluates in process under Budget.
type LocalBackend struct {
	Budget time.Duration
}

func (b LocalBackend) Roll(ctx context.Context, expr string, seed int64, env *value.Env) (Rolled, error) {
	result, err := dice.Within(ctx, b.Budget, dice.Request{Expression: expr, Seed: seed, Env: env})
	if err != nil {
		return Rolled{}, err
	}
	return Rolled{Display: value.Format(result.Value), Value: result.Value}, nil
}

func (LocalBackend) Explain(_ context.Context, expr string) (string, error) {
	return format.Explain(expr)
}

func (LocalBackend) Operators(context.Context) (string, error) {
	return dice.OperatorList(), nil
}

// RemoteBackend evaluates through a dice service. Variables stay local to
// each call on the server.
type RemoteBackend struct {
	Client *diceservice.Client
}

func (b RemoteBackend) Roll(ctx context.Context, expr string, seed int64, _ *value.Env) (Rolled, error) {
	roll, err := b.Client.Evaluate(ctx, diceservice.EvaluateRequest{Expression: expr, Seed: seed, HasSeed: true})
	if err != nil {
		return Rolled{}, err
	}
	return Rolled{Display: roll.Display}, nil
}

func (b RemoteBackend) Explain(ctx context.Context, expr string) (string, error) {
	return b.Client.Explain(ctx, expr)
}

func (b RemoteBackend) Operators(ctx context.Context) (string, error) {
	return b.Client.ListOperators(ctx)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Backend  Backend
	Seed     int64
	HasSeed  bool
	KeepVars bool
	Locale   string
	Out      io.Writer
	ErrOut   io.Writer
}

// Session interprets REPL lines: commands and dice expressions.
type Session struct {
	backend Backend
	remote  bool
	rng     *rand.Rand
	env     *value.Env
	printer *message.Printer
	out     io.Writer
	errOut  io.Writer
}

// NewSession returns a session. A seeded session draws each line's seed from
// one generator, so the whole session replays.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Backend == nil {
		return nil, errors.New("session backend is required")
	}
	s := &Session{
		backend: cfg.Backend,
		printer: catalog.Printer(cfg.Locale),
		out:     cfg.Out,
		errOut:  cfg.ErrOut,
	}
	if s.out == nil {
		s.out = io.Discard
	}
	if s.errOut == nil {
		s.errOut = io.Discard
	}
	_, s.remote = cfg.Backend.(RemoteBackend)
	if cfg.HasSeed {
		s.rng = random.NewRand(cfg.Seed)
	}
	if cfg.KeepVars {
		s.env = value.NewEnv()
	}
	return s, nil
}

// Handle runs one line. It reports whether the session should end and the
// error printed for the line, if any.
func (s *Session) Handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(s.out, s.printer.Sprintf("dice.help.summary"))
		fmt.Fprintln(s.out, s.printer.Sprintf("dice.repl.help"))
		return false, nil
	case "ops":
		ops, err := s.backend.Operators(ctx)
		if err != nil {
			return false, s.fail(err)
		}
		fmt.Fprintln(s.out, ops)
		return false, nil
	case "vars":
		return false, s.vars()
	}

	if rest, ok := strings.CutPrefix(line, "explain "); ok {
		canonical, err := s.backend.Explain(ctx, rest)
		if err != nil {
			return false, s.fail(err)
		}
		fmt.Fprintln(s.out, canonical)
		return false, nil
	}
	if rest, ok := strings.CutPrefix(line, "sort "); ok {
		return false, s.sort(ctx, rest)
	}

	rolled, err := s.roll(ctx, line)
	if err != nil {
		return false, s.fail(err)
	}
	fmt.Fprintln(s.out, rolled.Display)
	return false, nil
}

func (s *Session) roll(ctx context.Context, expr string) (Rolled, error) {
	seed, err := s.nextSeed()
	if err != nil {
		return Rolled{}, err
	}
	return s.backend.Roll(ctx, expr, seed, s.env)
}

func (s *Session) sort(ctx context.Context, expr string) error {
	if s.remote {
		return s.fail(errors.New(s.printer.Sprintf("dice.repl.remote_unsupported", "sort")))
	}
	rolled, err := s.roll(ctx, expr)
	if err != nil {
		return s.fail(err)
	}
	if _, ok := rolled.Value.(value.Array); !ok {
		return s.fail(errors.New(s.printer.Sprintf("dice.repl.sort_not_array")))
	}
	fmt.Fprintln(s.out, value.Format(dice.Sort(rolled.Value)))
	return nil
}

func (s *Session) vars() error {
	switch {
	case s.remote:
		return s.fail(errors.New(s.printer.Sprintf("dice.repl.remote_unsupported", "vars")))
	case s.env == nil:
		return s.fail(errors.New(s.printer.Sprintf("dice.repl.vars_disabled")))
	case s.env.Len() == 0:
		fmt.Fprintln(s.out, s.printer.Sprintf("dice.repl.vars_empty"))
		return nil
	}
	for _, name := range s.env.Names() {
		v, err := s.env.Get(value.Place{Name: name})
		if err != nil {
			return s.fail(err)
		}
		fmt.Fprintf(s.out, "%s = %s\n", name, value.Format(v))
	}
	return nil
}

func (s *Session) nextSeed() (int64, error) {
	if s.rng != nil {
		return s.rng.Int63(), nil
	}
	return random.NewSeed()
}

// fail prints err and returns it.
func (s *Session) fail(err error) error {
	msg := err.Error()
	if s.remote {
		msg = apperrors.UserMessage(err)
	}
	fmt.Fprintln(s.errOut, s.printer.Sprintf("dice.roll.error", msg))
	return err
}
