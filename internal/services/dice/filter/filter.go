// Package filter translates AIP-160 filter expressions over roll history into
// SQL conditions.
package filter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// RollDeclarations returns the identifiers a roll filter may reference.
func RollDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("expression", filtering.TypeString),
		filtering.DeclareIdent("display", filtering.TypeString),
		filtering.DeclareIdent("error", filtering.TypeString),
		filtering.DeclareIdent("seed", filtering.TypeInt),
		filtering.DeclareIdent("ts", filtering.TypeTimestamp),
	)
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "seed > ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// Empty reports whether the condition selects every row.
func (c SQLCondition) Empty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

// columns maps filter identifiers to roll columns.
var columns = map[string]string{
	"expression": "expression",
	"display":    "display",
	"error":      "error_text",
	"seed":       "seed",
	"ts":         "created_at",
}

var comparisons = map[string]string{
	filtering.FunctionEquals:        "=",
	filtering.FunctionNotEquals:     "!=",
	filtering.FunctionLessThan:      "<",
	filtering.FunctionLessEquals:    "<=",
	filtering.FunctionGreaterThan:   ">",
	filtering.FunctionGreaterEquals: ">=",
}

// ParseRollFilter parses an AIP-160 filter and returns its SQL condition. An
// empty filter gives an empty condition.
func ParseRollFilter(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}

	decls, err := RollDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translateExpr(parsed.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (SQLCondition, error) {
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", e.GetExprKind())
	}
	fn := call.CallExpr.GetFunction()
	args := call.CallExpr.GetArgs()

	switch fn {
	case filtering.FunctionAnd, filtering.FunctionFuzzyAnd:
		return join("AND", args)
	case filtering.FunctionOr:
		return join("OR", args)
	case filtering.FunctionNot:
		if len(args) != 1 {
			return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(args[0])
		if err != nil {
			return SQLCondition{}, err
		}
		return SQLCondition{Clause: "(NOT " + inner.Clause + ")", Params: inner.Params}, nil
	}
	if op, ok := comparisons[fn]; ok {
		return translateComparison(args, op)
	}
	return SQLCondition{}, fmt.Errorf("unsupported function: %s", fn)
}

func join(op string, args []*expr.Expr) (SQLCondition, error) {
	if len(args) < 2 {
		return SQLCondition{}, fmt.Errorf("%s requires at least 2 arguments", op)
	}
	clauses := make([]string, 0, len(args))
	var params []any
	for _, arg := range args {
		cond, err := translateExpr(arg)
		if err != nil {
			return SQLCondition{}, err
		}
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	return SQLCondition{
		Clause: "(" + strings.Join(clauses, " "+op+" ") + ")",
		Params: params,
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return SQLCondition{}, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	field := ident.IdentExpr.GetName()
	column, ok := columns[field]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	if field == "ts" {
		if value, err = toMillis(value); err != nil {
			return SQLCondition{}, err
		}
	}
	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func extractValue(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		return constValue(kind.ConstExpr)
	case *expr.Expr_CallExpr:
		call := kind.CallExpr
		if call.GetFunction() == filtering.FunctionTimestamp && len(call.GetArgs()) == 1 {
			return extractValue(call.GetArgs()[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", call.GetFunction())
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func constValue(c *expr.Constant) (any, error) {
	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

// toMillis converts an RFC 3339 timestamp to the stored epoch milliseconds.
func toMillis(value any) (int64, error) {
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("timestamp must be a string, got %T", value)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp format: %s", s)
	}
	return t.UTC().UnixMilli(), nil
}
