package dice

import (
	"context"

	"github.com/louisbranch/dicebox/internal/services/shared/roller"
)

// Local offers the Client roll surface in process, for front ends started
// without a dice service address. Rolls are never persisted.
type Local struct {
	Roller *roller.Roller
}

func (l Local) Evaluate(ctx context.Context, req EvaluateRequest) (Roll, error) {
	out, err := l.Roller.Roll(ctx, roller.Request{
		Expression: req.Expression,
		Seed:       req.Seed,
		HasSeed:    req.HasSeed,
	})
	if err != nil {
		return Roll{}, err
	}
	return Roll{
		Expression: out.Expression,
		Display:    out.Display,
		Text:       out.Text,
		Seed:       out.Seed,
	}, nil
}

func (l Local) Explain(ctx context.Context, expr string) (string, error) {
	return l.Roller.Explain(ctx, expr)
}

func (l Local) ListOperators(context.Context) (string, error) {
	return l.Roller.Operators(), nil
}
