// Package dice evaluates dice notation such as `4d6+7`, `2d20H1`,
// `d10!(9,10)!` or `x=4; [x,x]`.
//
// The lexer, parser and value model live in subpackages; this package wires
// them into the single entry point used by every front end.
package dice

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/louisbranch/dicebox/internal/dice/lex"
	"github.com/louisbranch/dicebox/internal/dice/parse"
	"github.com/louisbranch/dicebox/internal/dice/value"
	"github.com/louisbranch/dicebox/internal/random"
)

// ErrHalted indicates an evaluation was stopped before it finished, either
// by cancellation or by exceeding its time budget.
var ErrHalted = errors.New("execution halted")

// Request describes one evaluation.
type Request struct {
	Expression string
	Seed       int64
	// Env holds variables across evaluations. Nil gives each evaluation a
	// fresh environment.
	Env *value.Env
}

// Result is a fully resolved evaluation result.
type Result struct {
	Value value.Deep
	Seed  int64
}

// Eval parses and evaluates the request expression.
//
// # Determinism
//
// Dice are drawn from a generator seeded with Request.Seed. The same
// expression, seed and variables always produce the same Result.
//
// # Variables
//
// Assignments reach Request.Env only when the evaluation succeeds; a failed
// evaluation leaves it untouched.
func Eval(ctx context.Context, request Request) (Result, error) {
	env := value.NewEnv()
	if request.Env != nil {
		env = request.Env.Clone()
	}

	ev := NewEvaluator(ctx, env, random.NewRand(request.Seed))
	lazy, err := parse.Parse[value.Lazy](request.Expression, ev)
	if err != nil {
		return Result{}, err
	}
	v, err := ev.resolver.Deep(lazy)
	if err != nil {
		return Result{}, err
	}

	if request.Env != nil {
		request.Env.Replace(env)
	}
	return Result{Value: v, Seed: request.Seed}, nil
}

// Evaluate evaluates expr with a fresh environment and a random seed.
func Evaluate(ctx context.Context, expr string) (value.Deep, error) {
	seed, err := random.NewSeed()
	if err != nil {
		return nil, err
	}
	result, err := Eval(ctx, Request{Expression: expr, Seed: seed})
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// Within races Eval against budget. When the budget runs out first it
// returns an error matching ErrHalted without waiting for the evaluation,
// which stops at its next yield point and is discarded. Request.Env is only
// updated by an evaluation that finished in time.
func Within(ctx context.Context, budget time.Duration, request Request) (Result, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, budget, ErrHalted)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}
	shared := request.Env
	if shared != nil {
		request.Env = shared.Clone()
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := Eval(ctx, request)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Result{}, out.err
		}
		if shared != nil {
			shared.Replace(request.Env)
		}
		return out.result, nil
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), ErrHalted) {
			return Result{}, ErrHalted
		}
		return Result{}, errors.Join(ErrHalted, context.Cause(ctx))
	}
}

// OperatorList enumerates the operators for help text.
func OperatorList() string {
	return lex.OperatorList()
}

// Sort orders an array by the total order of values. Other values are
// returned unchanged.
func Sort(v value.Deep) value.Deep {
	arr, ok := v.(value.Array)
	if !ok {
		return v
	}
	sorted := slices.Clone(arr)
	slices.SortStableFunc(sorted, value.Compare)
	return sorted
}
