// Package format prints dice expressions in a canonical, fully
// parenthesized form without evaluating them.
package format

import (
	"strconv"
	"strings"

	"github.com/louisbranch/dicebox/internal/dice/evalerr"
	"github.com/louisbranch/dicebox/internal/dice/lex"
	"github.com/louisbranch/dicebox/internal/dice/parse"
)

// Printer implements parse.Instructions over source text. Every compound
// reduction is wrapped in parentheses, so the output parses back to the same
// reductions.
type Printer struct{}

var _ parse.Instructions[string] = Printer{}

// Explain parses src and returns its canonical form.
func Explain(src string) (string, error) {
	return parse.Parse[string](src, Printer{})
}

func (Printer) Literal(tok lex.Token) (string, error) {
	switch tok.Kind {
	case lex.KindNumber:
		return strconv.FormatUint(tok.Num, 10), nil
	case lex.KindChar:
		return "'" + string(tok.Char) + "'", nil
	case lex.KindString:
		return `"` + tok.Text + `"`, nil
	case lex.KindIdent:
		return tok.Text, nil
	default:
		return "", evalerr.New(evalerr.Parse, "invalid literal %s", tok)
	}
}

func (Printer) Binary(op lex.Op, left, right string) (string, error) {
	switch op {
	case lex.OpLBracket:
		return left + "[" + right + "]", nil
	case lex.OpComma, lex.OpSemicolon:
		return "(" + left + op.String() + " " + right + ")", nil
	default:
		return "(" + left + " " + op.String() + " " + right + ")", nil
	}
}

func (Printer) Prefix(op lex.Op, operand string) (string, error) {
	return "(" + op.String() + operand + ")", nil
}

func (Printer) Suffix(op lex.Op, operand string) (string, error) {
	return "(" + operand + op.String() + ")", nil
}

func (Printer) Dice(count string, counted bool, sides string) (string, error) {
	if !counted {
		return "(" + joinWord("", parse.DiceWord, sides) + ")", nil
	}
	return "(" + joinWord(count, parse.DiceWord, sides) + ")", nil
}

func (Printer) KeepHighest(dice, keep string) (string, error) {
	return "(" + joinWord(dice, parse.KeepHighestWords[0], keep) + ")", nil
}

func (Printer) KeepLowest(dice, keep string) (string, error) {
	return "(" + joinWord(dice, parse.KeepLowestWords[0], keep) + ")", nil
}

// Explode keeps a space before `!(` so a closing paren on the left is not
// read as `)!`.
func (Printer) Explode(dice, set string) (string, error) {
	return "(" + dice + " !(" + set + ")!)", nil
}

func (Printer) Array(elems []string) (string, error) {
	return "[" + strings.Join(elems, ", ") + "]", nil
}

// joinWord places a keyword between two operands, separating it from any
// letter that would otherwise merge into the same identifier.
func joinWord(left, word, right string) string {
	var b strings.Builder
	b.WriteString(left)
	if left != "" && identByte(left[len(left)-1]) {
		b.WriteByte(' ')
	}
	b.WriteString(word)
	if right != "" && identByte(right[0]) {
		b.WriteByte(' ')
	}
	b.WriteString(right)
	return b.String()
}

func identByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
