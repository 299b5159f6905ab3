package scenario

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
)

const (
	stepSeed    = "seed"
	stepRoll    = "roll"
	stepExplain = "explain"
)

// scenarioState carries settings between steps.
type scenarioState struct {
	seed    int64
	hasSeed bool
}

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case stepSeed:
		return r.runSeed(state, step)
	case stepRoll:
		return r.runRoll(ctx, state, step)
	case stepExplain:
		return r.runExplain(ctx, step)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runSeed(state *scenarioState, step Step) error {
	seed, ok, err := readSeed(step.Args, "seed")
	if err != nil {
		return r.failf("%v", err)
	}
	if !ok {
		return r.failf("seed is required")
	}
	state.seed = seed
	state.hasSeed = true
	return nil
}

func (r *Runner) runRoll(ctx context.Context, state *scenarioState, step Step) error {
	expr := optionalString(step.Args, "expression", "")
	req := diceservice.EvaluateRequest{Expression: expr}
	seed, ok, err := readSeed(step.Args, "seed")
	if err != nil {
		return r.failf("%v", err)
	}
	switch {
	case ok:
		req.Seed, req.HasSeed = seed, true
	case state.hasSeed:
		req.Seed, req.HasSeed = state.seed, true
	}

	roll, err := r.dice.Evaluate(ctx, req)
	if err == nil {
		r.logf("roll %q = %s (seed %d)", expr, roll.Display, roll.Seed)
	}
	return r.checkOutcome(step.Args, "roll "+quote(expr), roll.Display, err)
}

func (r *Runner) runExplain(ctx context.Context, step Step) error {
	expr := optionalString(step.Args, "expression", "")
	canonical, err := r.dice.Explain(ctx, expr)
	if err == nil {
		r.logf("explain %q = %s", expr, canonical)
	}
	return r.checkOutcome(step.Args, "explain "+quote(expr), canonical, err)
}

// checkOutcome applies the step expectations to one evaluation. Without an
// error expectation an evaluation error fails the step in every mode.
func (r *Runner) checkOutcome(args map[string]any, subject, got string, err error) error {
	if wantCode, ok := args["expect_error"]; ok {
		code, _ := wantCode.(string)
		if err == nil {
			return r.assertf("%s = %s, want error %s", subject, got, orAny(code))
		}
		if reason := apperrors.ReasonOf(err); code != "" && string(reason) != code {
			return r.assertf("%s error = %s (%v), want %s", subject, reason, err, code)
		}
		return nil
	}
	if err != nil {
		return r.failf("%s: %w", subject, err)
	}

	if want, ok := args["expect"]; ok {
		if text := expectedText(want); got != text {
			return r.assertf("%s = %s, want %s", subject, got, text)
		}
	}
	if bounds, ok := readBounds(args); ok {
		n, parseErr := parseNumber(got)
		if parseErr != nil {
			return r.assertf("%s = %s, want a number in [%v, %v]", subject, got, bounds.low, bounds.high)
		}
		if n < bounds.low || n > bounds.high {
			return r.assertf("%s = %s, want a number in [%v, %v]", subject, got, bounds.low, bounds.high)
		}
	}
	return nil
}
