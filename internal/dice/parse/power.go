package parse

import (
	"slices"

	"github.com/louisbranch/dicebox/internal/dice/lex"
)

// Binding powers. Higher binds tighter; an infix operator with left power lp
// and right power rp is left associative when lp < rp.
const (
	powerDiceLeft  = 39
	powerDiceRight = 40
	powerKeepLeft  = 35
	powerKeepRight = 36
	powerExplode   = 20
	powerIndex     = 50
)

// maxDepth bounds recursion on inputs like `((((...`.
const maxDepth = 512

func infixPower(op lex.Op) (left, right uint8, ok bool) {
	switch op {
	case lex.OpStar, lex.OpSlash:
		return 15, 16, true
	case lex.OpPlus, lex.OpMinus:
		return 13, 14, true
	case lex.OpComma:
		return 9, 10, true
	case lex.OpEqual:
		return 7, 8, true
	case lex.OpAnd:
		return 6, 7, true
	case lex.OpOr:
		return 5, 6, true
	case lex.OpAssign:
		return 4, 3, true
	case lex.OpSemicolon:
		return 1, 2, true
	default:
		return 0, 0, false
	}
}

func prefixPower(op lex.Op) (uint8, bool) {
	switch op {
	case lex.OpPlus, lex.OpMinus, lex.OpHash:
		return 20, true
	case lex.OpComma:
		return 10, true
	default:
		return 0, false
	}
}

func suffixPower(op lex.Op) (uint8, bool) {
	switch op {
	case lex.OpPercent:
		return 20, true
	case lex.OpBang:
		return 30, true
	default:
		return 0, false
	}
}

// KeepHighestWords are the identifiers read as keep-highest in operator
// position.
var KeepHighestWords = []string{"KH", "kh", "Kh", "kH", "H", "h", "K"}

// KeepLowestWords are the identifiers read as keep-lowest in operator
// position.
var KeepLowestWords = []string{"KL", "kl", "Kl", "kL", "L", "l"}

// DiceWord is the identifier that builds a dice term.
const DiceWord = "d"

type keepKind uint8

const (
	keepNone keepKind = iota
	keepHighest
	keepLowest
)

func keepWord(text string) keepKind {
	switch {
	case slices.Contains(KeepHighestWords, text):
		return keepHighest
	case slices.Contains(KeepLowestWords, text):
		return keepLowest
	default:
		return keepNone
	}
}
