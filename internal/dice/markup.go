package dice

import "strings"

const zeroWidthSpace = "\u200b"

// Markup wraps text in a double-backtick code span for chat transports.
// Backticks inside text are split with a zero-width space so they cannot
// close the span.
func Markup(text string) string {
	escaped := strings.ReplaceAll(text, "`", "`"+zeroWidthSpace)
	return "``" + zeroWidthSpace + escaped + zeroWidthSpace + "``"
}

// StripCode removes one layer of inline code or code fence around an
// expression typed into a chat message.
func StripCode(expr string) string {
	expr = strings.TrimSpace(expr)
	if len(expr) >= 6 && strings.HasPrefix(expr, "```") && strings.HasSuffix(expr, "```") {
		return expr[3 : len(expr)-3]
	}
	if len(expr) >= 2 && strings.HasPrefix(expr, "`") && strings.HasSuffix(expr, "`") {
		return expr[1 : len(expr)-1]
	}
	return expr
}
