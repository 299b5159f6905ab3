package scenario

import (
	"context"

	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
)

// Dice evaluates scenario expressions, in process or through the dice
// service.
type Dice interface {
	Evaluate(ctx context.Context, req diceservice.EvaluateRequest) (diceservice.Roll, error)
	Explain(ctx context.Context, expr string) (string, error)
}

var (
	_ Dice = diceservice.Local{}
	_ Dice = (*diceservice.Client)(nil)
)

// runnerDeps bundles injectable dependencies for runner construction.
type runnerDeps struct {
	dice Dice
}
