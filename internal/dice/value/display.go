package value

import (
	"math"
	"strconv"
	"strings"
)

// Format renders v. An array made only of characters renders as a quoted
// string; the empty array renders as `[]`.
func Format(v Deep) string {
	var b strings.Builder
	writeDeep(&b, v)
	return b.String()
}

func writeDeep(b *strings.Builder, v Deep) {
	switch v := v.(type) {
	case Int:
		b.WriteString(v.String())
	case Float:
		b.WriteString(formatFloat(float64(v)))
	case Char:
		b.WriteByte('\'')
		b.WriteRune(rune(v))
		b.WriteByte('\'')
	case Array:
		if s, ok := Text(v); ok {
			b.WriteString(strconv.Quote(s))
			return
		}
		b.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			writeDeep(b, elem)
		}
		b.WriteByte(']')
	}
}

// Text returns the unescaped string held by a non-empty array of characters.
func Text(v Deep) (string, bool) {
	arr, ok := v.(Array)
	if !ok || len(arr) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, elem := range arr {
		c, ok := elem.(Char)
		if !ok {
			return "", false
		}
		b.WriteRune(rune(c))
	}
	return b.String(), true
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
