package errors

import (
	"errors"

	"github.com/louisbranch/dicebox/internal/dice"
	"github.com/louisbranch/dicebox/internal/dice/evalerr"
)

var evalCodes = map[evalerr.Kind]Code{
	evalerr.Lex:     CodeDiceLex,
	evalerr.Parse:   CodeDiceParse,
	evalerr.Type:    CodeDiceType,
	evalerr.Range:   CodeDiceRange,
	evalerr.Resolve: CodeDiceResolve,
}

// FromEval converts a dice evaluation failure into a domain error. The
// evaluator's message is kept in the "Detail" metadata for templating.
// Errors that are not evaluation failures are returned unchanged.
func FromEval(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, dice.ErrHalted) {
		return Wrap(CodeDiceHalted, err.Error(), err)
	}
	var evalErr *evalerr.Error
	if !errors.As(err, &evalErr) {
		return err
	}
	code, ok := evalCodes[evalErr.Kind]
	if !ok {
		code = CodeUnknown
	}
	return WrapWithMetadata(code, evalErr.Error(), map[string]string{"Detail": evalErr.Message}, err)
}
