package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
)

// Dice evaluates expressions for the tools. *diceservice.Client satisfies it.
type Dice interface {
	Evaluate(ctx context.Context, req diceservice.EvaluateRequest) (diceservice.Roll, error)
	Explain(ctx context.Context, expr string) (string, error)
	ListOperators(ctx context.Context) (string, error)
}

var (
	_ Dice = diceservice.Local{}
	_ Dice = (*diceservice.Client)(nil)
)

// RollInput represents the MCP tool input for rolling an expression.
type RollInput struct {
	Expression string `json:"expression" jsonschema:"dice expression, for example 4d6KH3+2"`
	Seed       *int64 `json:"seed,omitempty" jsonschema:"optional seed that replays a previous roll"`
}

// RollResult represents the MCP tool output for a roll.
type RollResult struct {
	Display string `json:"display" jsonschema:"rendered result"`
	Text    string `json:"text,omitempty" jsonschema:"unescaped text when the result is a string"`
	Seed    int64  `json:"seed" jsonschema:"seed that replays this roll"`
}

// ExplainInput represents the MCP tool input for explaining an expression.
type ExplainInput struct {
	Expression string `json:"expression" jsonschema:"dice expression to explain"`
}

// ExplainResult represents the MCP tool output for an explanation.
type ExplainResult struct {
	Canonical string `json:"canonical" jsonschema:"fully parenthesized form of the expression"`
}

// OperatorsInput represents the MCP tool input for listing operators.
type OperatorsInput struct{}

// OperatorsResult represents the MCP tool output for the operator list.
type OperatorsResult struct {
	Operators string `json:"operators" jsonschema:"every operator the notation accepts"`
}

// RollTool defines the MCP tool schema for rolling an expression.
func RollTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "dice_roll",
		Description: "Rolls a dice notation expression such as 4d6+7, 2d20H1, d10!(9,10)! or x=4; [x,x]",
	}
}

// ExplainTool defines the MCP tool schema for explaining an expression.
func ExplainTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "dice_explain",
		Description: "Shows how an expression parses without rolling it",
	}
}

// OperatorsTool defines the MCP tool schema for the operator list.
func OperatorsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "dice_operators",
		Description: "Lists the operators of the dice notation",
	}
}

// RollHandler rolls one expression.
func RollHandler(dice Dice, locale string) mcp.ToolHandlerFor[RollInput, RollResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollInput) (*mcp.CallToolResult, RollResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		req := diceservice.EvaluateRequest{Expression: strings.TrimSpace(input.Expression)}
		if input.Seed != nil {
			req.Seed = *input.Seed
			req.HasSeed = true
		}
		roll, err := dice.Evaluate(runCtx, req)
		if err != nil {
			return nil, RollResult{}, toolError(err, locale)
		}
		return nil, RollResult{Display: roll.Display, Text: roll.Text, Seed: roll.Seed}, nil
	}
}

// ExplainHandler returns the canonical form of one expression.
func ExplainHandler(dice Dice, locale string) mcp.ToolHandlerFor[ExplainInput, ExplainResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ExplainInput) (*mcp.CallToolResult, ExplainResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		canonical, err := dice.Explain(runCtx, input.Expression)
		if err != nil {
			return nil, ExplainResult{}, toolError(err, locale)
		}
		return nil, ExplainResult{Canonical: canonical}, nil
	}
}

// OperatorsHandler lists the operators.
func OperatorsHandler(dice Dice, locale string) mcp.ToolHandlerFor[OperatorsInput, OperatorsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ OperatorsInput) (*mcp.CallToolResult, OperatorsResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		ops, err := dice.ListOperators(runCtx)
		if err != nil {
			return nil, OperatorsResult{}, toolError(err, locale)
		}
		return nil, OperatorsResult{Operators: ops}, nil
	}
}

// toolError keeps only the user-facing text so the model sees a message it
// can act on.
func toolError(err error, locale string) error {
	return errors.New(apperrors.MessageFor(err, locale))
}
