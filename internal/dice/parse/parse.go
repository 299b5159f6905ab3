// Package parse implements a precedence-climbing parser for dice expressions.
//
// The parser builds no syntax tree. Each grammar reduction calls one method of
// an Instructions implementation and carries its result forward, so the same
// grammar can drive an evaluator, a printer or a checker.
package parse

import (
	"github.com/louisbranch/dicebox/internal/dice/evalerr"
	"github.com/louisbranch/dicebox/internal/dice/lex"
)

// Instructions receives grammar reductions.
//
// Binary also receives indexing as op lex.OpLBracket, with the indexed value
// on the left and the index on the right.
type Instructions[V any] interface {
	Literal(tok lex.Token) (V, error)
	Binary(op lex.Op, left, right V) (V, error)
	Prefix(op lex.Op, operand V) (V, error)
	Suffix(op lex.Op, operand V) (V, error)
	// Dice builds a dice term. counted is false for the prefix form `dN`.
	Dice(count V, counted bool, sides V) (V, error)
	KeepHighest(dice, keep V) (V, error)
	KeepLowest(dice, keep V) (V, error)
	Explode(dice, set V) (V, error)
	Array(elems []V) (V, error)
}

// Parse parses src and returns the value of the final reduction.
func Parse[V any](src string, ins Instructions[V]) (V, error) {
	p := &parser[V]{lexer: lex.New(src), ins: ins}
	v, err := p.expr(0)
	if err != nil {
		var zero V
		return zero, err
	}
	if tok := p.peek(); tok.Kind != lex.KindEOF {
		var zero V
		return zero, p.unexpected(tok)
	}
	return v, nil
}

type parser[V any] struct {
	lexer   *lex.Lexer
	ins     Instructions[V]
	pending []lex.Token
	depth   int
}

func (p *parser[V]) peek() lex.Token {
	if len(p.pending) == 0 {
		p.pending = append(p.pending, p.lexer.Next())
	}
	return p.pending[0]
}

func (p *parser[V]) advance() lex.Token {
	tok := p.peek()
	p.pending = p.pending[1:]
	return tok
}

// eat consumes the next token when it is op.
func (p *parser[V]) eat(op lex.Op) bool {
	if p.peek().Is(op) {
		p.advance()
		return true
	}
	return false
}

func (p *parser[V]) expect(op lex.Op) error {
	tok := p.peek()
	if tok.Is(op) {
		p.advance()
		return nil
	}
	// `(d6)!` lexes its tail as `)!`; read it as `)` followed by `!`.
	if op == lex.OpRParen && tok.Is(lex.OpRParenBang) {
		p.pending[0] = lex.Token{Kind: lex.KindOp, Op: lex.OpBang, Offset: tok.Offset + 1}
		return nil
	}
	if err := lexError(tok); err != nil {
		return err
	}
	return evalerr.New(evalerr.Parse, "expected `%s` but got %s", op, tok)
}

func (p *parser[V]) unexpected(tok lex.Token) error {
	if err := lexError(tok); err != nil {
		return err
	}
	if tok.Kind == lex.KindEOF {
		return evalerr.New(evalerr.Parse, "incomplete expression")
	}
	return evalerr.New(evalerr.Parse, "unexpected token %s", tok)
}

func lexError(tok lex.Token) error {
	switch tok.Kind {
	case lex.KindBadText:
		return evalerr.New(evalerr.Lex, "%s at offset %d", tok, tok.Offset)
	case lex.KindBadChar:
		return evalerr.New(evalerr.Lex, "%s at offset %d", tok, tok.Offset)
	default:
		return nil
	}
}

func (p *parser[V]) expr(minPower uint8) (V, error) {
	var zero V
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return zero, evalerr.New(evalerr.Parse, "expression nested too deeply")
	}

	lhs, err := p.primary()
	if err != nil {
		return zero, err
	}

	for {
		tok := p.peek()
		switch tok.Kind {
		case lex.KindEOF:
			return lhs, nil
		case lex.KindOp:
			next, done, err := p.operator(tok.Op, lhs, minPower)
			if err != nil {
				return zero, err
			}
			if done {
				return lhs, nil
			}
			lhs = next
		case lex.KindIdent:
			next, done, err := p.word(tok.Text, lhs, minPower)
			if err != nil {
				return zero, err
			}
			if done {
				return lhs, nil
			}
			lhs = next
		default:
			return zero, p.unexpected(tok)
		}
	}
}

// operator extends lhs with a suffix, explode set, index or infix operator.
// done reports that op does not bind at minPower and lhs is complete.
func (p *parser[V]) operator(op lex.Op, lhs V, minPower uint8) (next V, done bool, err error) {
	if power, ok := suffixPower(op); ok {
		if minPower > power {
			return lhs, true, nil
		}
		p.advance()
		next, err = p.ins.Suffix(op, lhs)
		return next, false, err
	}

	switch op {
	case lex.OpBangLParen:
		if minPower > powerExplode {
			return lhs, true, nil
		}
		p.advance()
		set, err := p.expr(0)
		if err != nil {
			return lhs, false, err
		}
		if err := p.expect(lex.OpRParenBang); err != nil {
			return lhs, false, err
		}
		next, err = p.ins.Explode(lhs, set)
		return next, false, err
	case lex.OpLBracket:
		if minPower > powerIndex {
			return lhs, true, nil
		}
		p.advance()
		index, err := p.expr(0)
		if err != nil {
			return lhs, false, err
		}
		if err := p.expect(lex.OpRBracket); err != nil {
			return lhs, false, err
		}
		next, err = p.ins.Binary(lex.OpLBracket, lhs, index)
		return next, false, err
	}

	left, right, ok := infixPower(op)
	if !ok || minPower > left {
		return lhs, true, nil
	}
	p.advance()
	rhs, err := p.expr(right)
	if err != nil {
		return lhs, false, err
	}
	next, err = p.ins.Binary(op, lhs, rhs)
	return next, false, err
}

// word extends lhs with a contextual keyword: `d` or a keep operator.
func (p *parser[V]) word(text string, lhs V, minPower uint8) (next V, done bool, err error) {
	if text == DiceWord {
		if minPower > powerDiceLeft {
			return lhs, true, nil
		}
		p.advance()
		sides, err := p.expr(powerDiceRight)
		if err != nil {
			return lhs, false, err
		}
		next, err = p.ins.Dice(lhs, true, sides)
		return next, false, err
	}

	kind := keepWord(text)
	if kind == keepNone {
		return lhs, false, p.unexpected(p.peek())
	}
	if minPower > powerKeepLeft {
		return lhs, true, nil
	}
	p.advance()
	keep, err := p.expr(powerKeepRight)
	if err != nil {
		return lhs, false, err
	}
	if kind == keepHighest {
		next, err = p.ins.KeepHighest(lhs, keep)
	} else {
		next, err = p.ins.KeepLowest(lhs, keep)
	}
	return next, false, err
}

func (p *parser[V]) primary() (V, error) {
	var zero V
	tok := p.advance()
	switch tok.Kind {
	case lex.KindNumber, lex.KindChar, lex.KindString:
		return p.ins.Literal(tok)
	case lex.KindIdent:
		if tok.Text == DiceWord {
			sides, err := p.expr(powerDiceRight)
			if err != nil {
				return zero, err
			}
			return p.ins.Dice(zero, false, sides)
		}
		return p.ins.Literal(tok)
	case lex.KindOp:
		return p.prefix(tok)
	default:
		return zero, p.unexpected(tok)
	}
}

func (p *parser[V]) prefix(tok lex.Token) (V, error) {
	var zero V
	if power, ok := prefixPower(tok.Op); ok {
		operand, err := p.expr(power)
		if err != nil {
			return zero, err
		}
		return p.ins.Prefix(tok.Op, operand)
	}

	switch tok.Op {
	case lex.OpLParen:
		inner, err := p.expr(0)
		if err != nil {
			return zero, err
		}
		if err := p.expect(lex.OpRParen); err != nil {
			return zero, err
		}
		return inner, nil
	case lex.OpLBracket:
		return p.array()
	default:
		return zero, evalerr.New(evalerr.Parse, "invalid prefix operator %s", tok)
	}
}

func (p *parser[V]) array() (V, error) {
	var zero V
	_, elemPower, _ := infixPower(lex.OpComma)
	var elems []V
	if p.eat(lex.OpRBracket) {
		return p.ins.Array(elems)
	}
	for {
		elem, err := p.expr(elemPower)
		if err != nil {
			return zero, err
		}
		elems = append(elems, elem)
		if p.eat(lex.OpRBracket) {
			break
		}
		if err := p.expect(lex.OpComma); err != nil {
			return zero, err
		}
		if p.eat(lex.OpRBracket) {
			break
		}
	}
	return p.ins.Array(elems)
}
