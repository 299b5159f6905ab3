// Package lex splits dice expressions into tokens.
//
// The lexer never fails: malformed input becomes a BadText or BadChar token
// and the parser decides whether it is fatal.
package lex

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the token variant.
type Kind uint8

const (
	KindEOF Kind = iota
	KindNumber
	KindIdent
	KindOp
	KindChar
	KindString
	// KindBadText marks text that looked like a literal but could not be
	// decoded, such as an overflowing number or an unterminated string.
	KindBadText
	// KindBadChar marks a character no rule recognizes.
	KindBadChar
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "end of input"
	case KindNumber:
		return "number"
	case KindIdent:
		return "identifier"
	case KindOp:
		return "operator"
	case KindChar:
		return "character"
	case KindString:
		return "string"
	case KindBadText:
		return "malformed text"
	case KindBadChar:
		return "malformed character"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. Only the fields relevant to Kind are set.
type Token struct {
	Kind   Kind
	Num    uint64
	Text   string
	Op     Op
	Char   rune
	Offset int
}

// String renders the token the way it appears in error messages.
func (t Token) String() string {
	switch t.Kind {
	case KindEOF:
		return "end of input"
	case KindNumber:
		return strconv.FormatUint(t.Num, 10)
	case KindIdent:
		return "`" + t.Text + "`"
	case KindOp:
		return "`" + t.Op.String() + "`"
	case KindChar:
		return "'" + string(t.Char) + "'"
	case KindString:
		return strconv.Quote(t.Text)
	case KindBadText:
		return fmt.Sprintf("malformed text %q", t.Text)
	case KindBadChar:
		return fmt.Sprintf("unexpected character %q", t.Char)
	default:
		return "unknown token"
	}
}

// Is reports whether the token is the given operator.
func (t Token) Is(op Op) bool {
	return t.Kind == KindOp && t.Op == op
}

// Lexer scans a source string one token at a time.
type Lexer struct {
	src string
	pos int
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Offset returns the byte offset of the next unread character.
func (l *Lexer) Offset() int {
	return l.pos
}

// Next returns the next token. Once the input is exhausted it keeps returning
// KindEOF. A NUL byte ends the input.
func (l *Lexer) Next() Token {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) || l.src[l.pos] == 0 {
		l.pos = len(l.src)
		return Token{Kind: KindEOF, Offset: start}
	}

	c := l.src[l.pos]
	switch {
	case isDigit(c):
		return l.number()
	case isIdentByte(c):
		end := l.pos
		for end < len(l.src) && isIdentByte(l.src[end]) {
			end++
		}
		l.pos = end
		return Token{Kind: KindIdent, Text: l.src[start:end], Offset: start}
	case c == '\'':
		return l.char()
	case c == '"':
		return l.string()
	}

	if len(l.src)-l.pos >= 2 {
		if op, ok := twoCharOps[l.src[l.pos:l.pos+2]]; ok {
			l.pos += 2
			return Token{Kind: KindOp, Op: op, Offset: start}
		}
	}
	if op, ok := oneCharOps[c]; ok {
		l.pos++
		return Token{Kind: KindOp, Op: op, Offset: start}
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	return Token{Kind: KindBadChar, Char: r, Offset: start}
}

// All yields tokens up to, but not including, the end of input.
func (l *Lexer) All() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			tok := l.Next()
			if tok.Kind == KindEOF || !yield(tok) {
				return
			}
		}
	}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.pos++
		default:
			return
		}
	}
}

func (l *Lexer) number() Token {
	start := l.pos
	end := l.pos
	for end < len(l.src) && isDigit(l.src[end]) {
		end++
	}
	l.pos = end
	text := l.src[start:end]
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return Token{Kind: KindBadText, Text: text, Offset: start}
	}
	return Token{Kind: KindNumber, Num: n, Text: text, Offset: start}
}

func (l *Lexer) char() Token {
	start := l.pos
	rest := l.src[l.pos+1:]
	r, size := utf8.DecodeRuneInString(rest)
	if size > 0 && !(r == utf8.RuneError && size == 1) && size < len(rest) && rest[size] == '\'' {
		l.pos += 1 + size + 1
		return Token{Kind: KindChar, Char: r, Offset: start}
	}
	l.pos++
	return Token{Kind: KindBadChar, Char: '\'', Offset: start}
}

func (l *Lexer) string() Token {
	start := l.pos
	body := l.src[l.pos+1:]
	end := strings.IndexByte(body, '"')
	if end < 0 {
		l.pos = len(l.src)
		return Token{Kind: KindBadText, Text: l.src[start:], Offset: start}
	}
	l.pos += 1 + end + 1
	return Token{Kind: KindString, Text: body[:end], Offset: start}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
