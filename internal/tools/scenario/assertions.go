package scenario

import (
	"fmt"
	"log"
	"strings"
)

// AssertionMode controls what happens when an expectation is not met.
type AssertionMode int

const (
	// AssertionStrict stops the scenario at the first unmet expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs unmet expectations and keeps going.
	AssertionLogOnly
)

// ParseAssertionMode reads "strict" or "log".
func ParseAssertionMode(value string) (AssertionMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict":
		return AssertionStrict, nil
	case "log", "log-only":
		return AssertionLogOnly, nil
	default:
		return AssertionStrict, fmt.Errorf("unknown assertion mode %q (want strict or log)", value)
	}
}

func (m AssertionMode) String() string {
	if m == AssertionLogOnly {
		return "log"
	}
	return "strict"
}

// Assertions reports step failures according to Mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger

	unmet int
}

// Failf returns an error in every mode. It is used for failures that make
// the rest of the step meaningless, such as an unexpected evaluation error.
func (a *Assertions) Failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Assertf returns an error in strict mode. In log-only mode it logs the
// failure and returns nil.
func (a *Assertions) Assertf(format string, args ...any) error {
	a.unmet++
	err := fmt.Errorf(format, args...)
	if a.Mode != AssertionLogOnly {
		return err
	}
	if a.Logger != nil {
		a.Logger.Printf("expectation failed: %v", err)
	}
	return nil
}

// Unmet counts the expectations that failed so far.
func (a *Assertions) Unmet() int {
	return a.unmet
}
