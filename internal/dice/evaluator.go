package dice

import (
	"context"
	"fmt"
	"math/big"

	"github.com/louisbranch/dicebox/internal/dice/evalerr"
	"github.com/louisbranch/dicebox/internal/dice/lex"
	"github.com/louisbranch/dicebox/internal/dice/parse"
	"github.com/louisbranch/dicebox/internal/dice/value"
)

// yieldEvery is how many yield points pass between context checks.
const yieldEvery = 64

// Evaluator implements parse.Instructions over lazy values. It is owned by
// one evaluation and is not safe for concurrent use.
type Evaluator struct {
	ctx      context.Context
	resolver value.Resolver
	steps    uint64
}

var _ parse.Instructions[value.Lazy] = (*Evaluator)(nil)

// NewEvaluator returns an evaluator drawing dice from rnd and storing
// variables in env. The evaluation stops at the first yield point after ctx
// is done.
func NewEvaluator(ctx context.Context, env *value.Env, rnd value.Source) *Evaluator {
	ev := &Evaluator{ctx: ctx}
	ev.resolver = value.Resolver{Env: env, Rand: rnd, Yield: ev.yield}
	return ev
}

func (ev *Evaluator) yield() error {
	ev.steps++
	if ev.steps%yieldEvery != 0 {
		return nil
	}
	if ev.ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrHalted, context.Cause(ev.ctx))
	}
	return nil
}

// Literal turns a literal token into a value. Identifiers become variable
// references.
func (ev *Evaluator) Literal(tok lex.Token) (value.Lazy, error) {
	switch tok.Kind {
	case lex.KindNumber:
		return value.BigInt(new(big.Int).SetUint64(tok.Num)), nil
	case lex.KindChar:
		return value.Char(tok.Char), nil
	case lex.KindString:
		return value.Lift(value.Str(tok.Text)), nil
	case lex.KindIdent:
		return value.Place{Name: tok.Text}, nil
	default:
		return nil, evalerr.New(evalerr.Parse, "invalid literal %s", tok)
	}
}

// Binary applies an infix operator.
func (ev *Evaluator) Binary(op lex.Op, left, right value.Lazy) (value.Lazy, error) {
	switch op {
	case lex.OpSemicolon:
		return right, nil
	case lex.OpAssign:
		return ev.assign(left, right)
	case lex.OpComma:
		return ev.concat(left, right)
	case lex.OpLBracket:
		return ev.index(left, right)
	}

	arith, ok := arithOps[op]
	if !ok {
		return nil, evalerr.New(evalerr.Parse, "invalid infix operator `%s`", op)
	}
	a, err := ev.resolver.Deep(left)
	if err != nil {
		return nil, err
	}
	b, err := ev.resolver.Deep(right)
	if err != nil {
		return nil, err
	}
	v, err := value.Binary(arith, a, b, ev.resolver.Yield)
	if err != nil {
		return nil, err
	}
	return value.Lift(v), nil
}

var arithOps = map[lex.Op]value.Op{
	lex.OpPlus:  value.Add,
	lex.OpMinus: value.Sub,
	lex.OpStar:  value.Mul,
	lex.OpSlash: value.Div,
	lex.OpEqual: value.Eq,
	lex.OpOr:    value.Or,
	lex.OpAnd:   value.And,
}

// assign stores the deep value of right at left and evaluates to the place
// itself, so chained assignments read the final value.
func (ev *Evaluator) assign(left, right value.Lazy) (value.Lazy, error) {
	place, ok := left.(value.Place)
	if !ok {
		return nil, evalerr.New(evalerr.Type, "cannot assign to %s", value.TypeName(left))
	}
	v, err := ev.resolver.Deep(right)
	if err != nil {
		return nil, err
	}
	if err := ev.resolver.Env.Set(place, v); err != nil {
		return nil, err
	}
	return place, nil
}

// concat joins two values into an array. Array operands contribute their
// elements; scalars contribute themselves.
func (ev *Evaluator) concat(left, right value.Lazy) (value.Lazy, error) {
	a, err := ev.resolver.Resolve(left)
	if err != nil {
		return nil, err
	}
	b, err := ev.resolver.Resolve(right)
	if err != nil {
		return nil, err
	}
	as, aIsArray := a.(value.LazyArray)
	bs, bIsArray := b.(value.LazyArray)
	if !aIsArray {
		as = value.LazyArray{value.Unresolve(a)}
	}
	if !bIsArray {
		bs = value.LazyArray{value.Unresolve(b)}
	}
	if len(as)+len(bs) > value.MaxArrayLen {
		return nil, evalerr.New(evalerr.Range, "array too large: %d > %d", len(as)+len(bs), value.MaxArrayLen)
	}
	out := make(value.LazyArray, 0, len(as)+len(bs))
	out = append(out, as...)
	return append(out, bs...), nil
}

// index reads one element. On a variable reference it narrows the place so
// the element can be assigned to.
func (ev *Evaluator) index(target, at value.Lazy) (value.Lazy, error) {
	d, err := ev.resolver.Deep(at)
	if err != nil {
		return nil, err
	}
	i, err := value.ToInt(d)
	if err != nil {
		return nil, err
	}
	if place, ok := target.(value.Place); ok {
		return place.At(i), nil
	}

	v, err := ev.resolver.Resolve(target)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(value.LazyArray)
	if !ok {
		return nil, evalerr.New(evalerr.Resolve, "cannot index into %s", value.TypeName(v))
	}
	if i < 0 || i >= len(arr) {
		return nil, evalerr.New(evalerr.Resolve, "index %d out of bounds for array of length %d", i, len(arr))
	}
	return arr[i], nil
}

// Prefix applies a unary operator.
func (ev *Evaluator) Prefix(op lex.Op, operand value.Lazy) (value.Lazy, error) {
	switch op {
	case lex.OpPlus:
		return operand, nil
	case lex.OpMinus:
		d, err := ev.resolver.Deep(operand)
		if err != nil {
			return nil, err
		}
		v, err := value.Neg(d, ev.resolver.Yield)
		if err != nil {
			return nil, err
		}
		return value.Lift(v), nil
	case lex.OpComma:
		return value.LazyArray{operand}, nil
	case lex.OpHash:
		v, err := ev.resolver.Resolve(operand)
		if err != nil {
			return nil, err
		}
		arr, ok := v.(value.LazyArray)
		if !ok {
			return nil, evalerr.New(evalerr.Type, "cannot take the length of %s", value.TypeName(v))
		}
		return value.NewInt(int64(len(arr))), nil
	default:
		return nil, evalerr.New(evalerr.Parse, "invalid prefix operator `%s`", op)
	}
}

// Suffix applies `%` or `!`.
func (ev *Evaluator) Suffix(op lex.Op, operand value.Lazy) (value.Lazy, error) {
	switch op {
	case lex.OpPercent:
		d, err := ev.resolver.Deep(operand)
		if err != nil {
			return nil, err
		}
		v, err := value.Binary(value.Div, d, value.NewInt(100), ev.resolver.Yield)
		if err != nil {
			return nil, err
		}
		return value.Lift(v), nil
	case lex.OpBang:
		dice, ok := operand.(value.Dice)
		if !ok {
			return nil, evalerr.New(evalerr.Type, "factorial isn't implemented for %s", value.TypeName(operand))
		}
		side, ok := dice.MaxSide()
		if !ok {
			return dice, nil
		}
		return dice.WithExplode(side), nil
	default:
		return nil, evalerr.New(evalerr.Parse, "invalid suffix operator `%s`", op)
	}
}

// Dice builds an unforced dice term. An array of sides gives custom faces;
// a number n gives the faces 1..n.
func (ev *Evaluator) Dice(count value.Lazy, counted bool, sides value.Lazy) (value.Lazy, error) {
	n := 1
	if counted {
		var err error
		if n, err = ev.limitedInt(count, "dice", value.MaxDice); err != nil {
			return nil, err
		}
	}

	s, err := ev.resolver.Resolve(sides)
	if err != nil {
		return nil, err
	}
	if arr, ok := s.(value.LazyArray); ok {
		if len(arr) > value.MaxSides {
			return nil, evalerr.New(evalerr.Range, "too many sides: %d > %d", len(arr), value.MaxSides)
		}
		faces, err := ev.resolver.DeepResolved(arr)
		if err != nil {
			return nil, err
		}
		return value.NewDice(n, faces.(value.Array)), nil
	}
	m, err := ev.limitedInt(value.Unresolve(s), "sides", value.MaxSides)
	if err != nil {
		return nil, err
	}
	return value.NewDice(n, value.SidesUpTo(m)), nil
}

func (ev *Evaluator) limitedInt(v value.Lazy, what string, limit int) (int, error) {
	d, err := ev.resolver.Deep(v)
	if err != nil {
		return 0, err
	}
	n, err := value.ToInt(d)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, evalerr.New(evalerr.Range, "negative number of %s", what)
	}
	if n > limit {
		return 0, evalerr.New(evalerr.Range, "too many %s: %d > %d", what, n, limit)
	}
	return n, nil
}

// KeepHighest keeps the greatest dice of a term or elements of an array.
func (ev *Evaluator) KeepHighest(target, keep value.Lazy) (value.Lazy, error) {
	return ev.keep(target, keep, true)
}

// KeepLowest keeps the smallest dice of a term or elements of an array.
func (ev *Evaluator) KeepLowest(target, keep value.Lazy) (value.Lazy, error) {
	return ev.keep(target, keep, false)
}

func (ev *Evaluator) keep(target, keep value.Lazy, highest bool) (value.Lazy, error) {
	what := "keep-lowest"
	if highest {
		what = "keep-highest"
	}
	d, err := ev.resolver.Deep(keep)
	if err != nil {
		return nil, err
	}
	k, err := value.ToInt(d)
	if err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, evalerr.New(evalerr.Range, "invalid %s criterion: %d is negative", what, k)
	}

	if dice, ok := target.(value.Dice); ok {
		if highest {
			return dice.KeepHighest(k), nil
		}
		return dice.KeepLowest(k), nil
	}
	v, err := ev.resolver.Resolve(target)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(value.LazyArray)
	if !ok {
		return nil, evalerr.New(evalerr.Type, "%s operation is invalid on %s", what, value.TypeName(v))
	}
	elems, err := ev.resolver.DeepResolved(arr)
	if err != nil {
		return nil, err
	}
	return value.Lift(value.KeepArray(elems.(value.Array), k, highest)), nil
}

// Explode adds the members of set to the explode set of a dice term. An
// array set contributes each of its elements.
func (ev *Evaluator) Explode(target, set value.Lazy) (value.Lazy, error) {
	dice, ok := target.(value.Dice)
	if !ok {
		return nil, evalerr.New(evalerr.Type, "cannot explode %s", value.TypeName(target))
	}
	members, err := ev.resolver.Deep(set)
	if err != nil {
		return nil, err
	}
	if arr, ok := members.(value.Array); ok {
		return dice.WithExplode(arr...), nil
	}
	return dice.WithExplode(members), nil
}

// Array builds an array literal.
func (ev *Evaluator) Array(elems []value.Lazy) (value.Lazy, error) {
	if len(elems) > value.MaxArrayLen {
		return nil, evalerr.New(evalerr.Range, "array too large: %d > %d", len(elems), value.MaxArrayLen)
	}
	return value.LazyArray(elems), nil
}
