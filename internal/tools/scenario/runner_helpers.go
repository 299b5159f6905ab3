package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if ok {
		return text
	}
	return fallback
}

// readSeed accepts Lua integers and decimal strings. Seeds past 2^53 must be
// given as strings since Lua numbers arrive as doubles.
func readSeed(args map[string]any, key string) (int64, bool, error) {
	value, ok := args[key]
	if !ok || value == nil {
		return 0, false, nil
	}
	switch typed := value.(type) {
	case int:
		return int64(typed), true, nil
	case string:
		seed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s %q is not an integer", key, typed)
		}
		return seed, true, nil
	default:
		return 0, false, fmt.Errorf("%s %v is not an integer", key, value)
	}
}

type bounds struct {
	low, high float64
}

func readBounds(args map[string]any) (bounds, bool) {
	low, lowOK := readNumber(args, "min")
	high, highOK := readNumber(args, "max")
	if !lowOK || !highOK {
		return bounds{}, false
	}
	return bounds{low: low, high: high}, true
}

func readNumber(args map[string]any, key string) (float64, bool) {
	switch typed := args[key].(type) {
	case int:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func parseNumber(display string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(display), 64)
}

// expectedText renders an expected Lua value the way results are displayed:
// numbers in shortest form and sequences as `[a, b]`.
func expectedText(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case int:
		return strconv.Itoa(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case []any:
		parts := make([]string, len(typed))
		for i, elem := range typed {
			parts[i] = expectedText(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(typed)
	}
}

func quote(expr string) string {
	return strconv.Quote(expr)
}

func orAny(code string) string {
	if code == "" {
		return "(any)"
	}
	return code
}
