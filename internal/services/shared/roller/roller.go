// Package roller runs dice evaluations for the network front ends: it applies
// the evaluation budget, opens a trace span, maps engine failures to domain
// errors and, when configured, records the roll with a signed receipt.
package roller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/dicebox/internal/dice"
	"github.com/louisbranch/dicebox/internal/dice/format"
	"github.com/louisbranch/dicebox/internal/dice/value"
	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
	"github.com/louisbranch/dicebox/internal/platform/id"
	platformotel "github.com/louisbranch/dicebox/internal/platform/otel"
	"github.com/louisbranch/dicebox/internal/platform/timeouts"
	"github.com/louisbranch/dicebox/internal/random"
	"github.com/louisbranch/dicebox/internal/services/dice/receipt"
	"github.com/louisbranch/dicebox/internal/services/dice/storage"
)

const tracerName = "github.com/louisbranch/dicebox/roller"

// Config wires optional collaborators. A nil Store disables persistence and a
// nil Signer disables receipts.
type Config struct {
	Budget time.Duration
	Store  storage.RollStore
	Signer *receipt.Signer
	NewID  func() (string, error)
	Now    func() time.Time
	Tracer trace.Tracer
}

// Roller evaluates expressions on behalf of remote callers.
type Roller struct {
	budget time.Duration
	store  storage.RollStore
	signer *receipt.Signer
	newID  func() (string, error)
	now    func() time.Time
	tracer trace.Tracer
}

// New returns a roller with defaults for every unset field.
func New(cfg Config) *Roller {
	r := &Roller{
		budget: cfg.Budget,
		store:  cfg.Store,
		signer: cfg.Signer,
		newID:  cfg.NewID,
		now:    cfg.Now,
		tracer: cfg.Tracer,
	}
	if r.budget <= 0 {
		r.budget = timeouts.EvalBudget
	}
	if r.newID == nil {
		r.newID = id.NewID
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.tracer == nil {
		r.tracer = platformotel.Tracer(tracerName)
	}
	return r
}

// Request is one roll. Seed is used only when HasSeed is set; otherwise a
// fresh seed is drawn.
type Request struct {
	Expression string
	Seed       int64
	HasSeed    bool
	Persist    bool
	// Env carries variables between rolls of one session. Nil evaluates in a
	// fresh environment.
	Env *value.Env
}

// Outcome is a finished roll.
type Outcome struct {
	ID         string
	Expression string
	Value      value.Deep
	Display    string
	// Text is set when the value is a string.
	Text      string
	Seed      int64
	Receipt   string
	CreatedAt time.Time
}

// Roll evaluates the request within the budget. Engine failures come back as
// *apperrors.Error values carrying the dice code; persisted failures are
// recorded before they are returned.
func (r *Roller) Roll(ctx context.Context, req Request) (Outcome, error) {
	expr := strings.TrimSpace(req.Expression)
	if expr == "" {
		return Outcome{}, apperrors.New(apperrors.CodeExpressionEmpty, "expression is required")
	}

	seed, err := random.SeedOrNew(req.Seed, req.HasSeed)
	if err != nil {
		return Outcome{}, err
	}

	ctx, span := r.tracer.Start(ctx, "dice.Evaluate", trace.WithAttributes(
		attribute.String("dice.expression", expr),
		attribute.Int64("dice.seed", seed),
	))
	defer span.End()

	result, evalErr := dice.Within(ctx, r.budget, dice.Request{Expression: expr, Seed: seed, Env: req.Env})
	out := Outcome{Expression: expr, Seed: seed, CreatedAt: r.now().UTC()}
	if evalErr == nil {
		out.Value = result.Value
		out.Display = value.Format(result.Value)
		out.Text, _ = value.Text(result.Value)
		span.SetAttributes(attribute.String("dice.outcome", "ok"))
	} else {
		span.SetAttributes(attribute.String("dice.outcome", outcomeLabel(evalErr)))
		span.RecordError(evalErr)
		span.SetStatus(codes.Error, evalErr.Error())
	}

	if req.Persist && r.store != nil {
		if err := r.persist(ctx, &out, evalErr); err != nil {
			return Outcome{}, err
		}
	}
	if evalErr != nil {
		return out, apperrors.FromEval(evalErr)
	}
	return out, nil
}

func outcomeLabel(err error) string {
	if errors.Is(err, dice.ErrHalted) {
		return "halted"
	}
	return "error"
}

func (r *Roller) persist(ctx context.Context, out *Outcome, evalErr error) error {
	rollID, err := r.newID()
	if err != nil {
		return err
	}
	record := storage.Roll{
		ID:         rollID,
		Expression: out.Expression,
		Display:    out.Display,
		Seed:       out.Seed,
		CreatedAt:  out.CreatedAt,
	}
	if evalErr != nil {
		record.Error = evalErr.Error()
	}
	stored, err := r.store.PutRoll(ctx, record)
	if err != nil {
		return fmt.Errorf("record roll: %w", err)
	}
	out.ID = stored.ID
	out.CreatedAt = stored.CreatedAt

	if out.Receipt, err = r.Receipt(stored); err != nil {
		log.Printf("roller: sign receipt for %s: %v", stored.ID, err)
	}
	return nil
}

// Receipt signs a stored roll. Failed rolls and rollers without a signer
// get no receipt.
func (r *Roller) Receipt(roll storage.Roll) (string, error) {
	if r.signer == nil || roll.Error != "" {
		return "", nil
	}
	return r.signer.Sign(receipt.Claims{
		RollID:     roll.ID,
		Expression: roll.Expression,
		Display:    roll.Display,
		Seed:       roll.Seed,
	})
}

// Explain returns the fully parenthesized form of expr without evaluating it.
func (r *Roller) Explain(ctx context.Context, expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", apperrors.New(apperrors.CodeExpressionEmpty, "expression is required")
	}
	_, span := r.tracer.Start(ctx, "dice.Explain", trace.WithAttributes(
		attribute.String("dice.expression", expr),
	))
	defer span.End()

	canonical, err := format.Explain(expr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", apperrors.FromEval(err)
	}
	return canonical, nil
}

// Operators returns the operator list shown in help text.
func (r *Roller) Operators() string {
	return dice.OperatorList()
}

// Verify checks a receipt and returns its claims.
func (r *Roller) Verify(token string) (receipt.Claims, error) {
	if r.signer == nil {
		return receipt.Claims{}, apperrors.New(apperrors.CodeReceiptInvalid, "receipts are not enabled")
	}
	return r.signer.Verify(token)
}
