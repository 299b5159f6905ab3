package lex

import "strings"

// Op is an operator tag.
type Op uint8

const (
	OpPlus Op = iota
	OpMinus
	OpStar
	OpSlash
	OpLParen
	OpRParen
	OpLBracket
	OpRBracket
	OpPercent
	OpBang
	// OpBangLParen opens an explode set: `!(`.
	OpBangLParen
	// OpRParenBang closes an explode set: `)!`.
	OpRParenBang
	OpEqual
	OpOr
	OpAnd
	OpComma
	OpSemicolon
	OpAssign
	OpHash
	opCount
)

var opStrings = [opCount]string{
	OpPlus:       "+",
	OpMinus:      "-",
	OpStar:       "*",
	OpSlash:      "/",
	OpLParen:     "(",
	OpRParen:     ")",
	OpLBracket:   "[",
	OpRBracket:   "]",
	OpPercent:    "%",
	OpBang:       "!",
	OpBangLParen: "!(",
	OpRParenBang: ")!",
	OpEqual:      "==",
	OpOr:         "||",
	OpAnd:        "&&",
	OpComma:      ",",
	OpSemicolon:  ";",
	OpAssign:     "=",
	OpHash:       "#",
}

var (
	twoCharOps = map[string]Op{}
	oneCharOps = map[byte]Op{}
)

func init() {
	for op, s := range opStrings {
		switch len(s) {
		case 1:
			oneCharOps[s[0]] = Op(op)
		case 2:
			twoCharOps[s] = Op(op)
		}
	}
}

// String returns the operator as written in source.
func (o Op) String() string {
	if o >= opCount {
		return "?"
	}
	return opStrings[o]
}

// Ops returns every operator tag in declaration order.
func Ops() []Op {
	ops := make([]Op, 0, opCount)
	for op := range opCount {
		ops = append(ops, op)
	}
	return ops
}

// OperatorList renders every operator as inline code, comma separated.
func OperatorList() string {
	var b strings.Builder
	for i, op := range Ops() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("`")
		b.WriteString(op.String())
		b.WriteString("`")
	}
	return b.String()
}
