// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Dice evaluation errors
	CodeDiceLex     Code = "DICE_LEX"
	CodeDiceParse   Code = "DICE_PARSE"
	CodeDiceType    Code = "DICE_TYPE"
	CodeDiceRange   Code = "DICE_RANGE"
	CodeDiceResolve Code = "DICE_RESOLVE"
	CodeDiceHalted  Code = "DICE_HALTED"

	// Request errors
	CodeExpressionEmpty  Code = "EXPRESSION_EMPTY"
	CodeInvalidFilter    Code = "INVALID_FILTER"
	CodeInvalidPageToken Code = "INVALID_PAGE_TOKEN"
	CodeInvalidSeed      Code = "INVALID_SEED"
	CodeReceiptInvalid   Code = "RECEIPT_INVALID"
	CodeRollIDEmpty      Code = "ROLL_ID_EMPTY"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeDiceLex,
		CodeDiceParse,
		CodeDiceType,
		CodeDiceRange,
		CodeDiceResolve,
		CodeExpressionEmpty,
		CodeInvalidFilter,
		CodeInvalidPageToken,
		CodeInvalidSeed,
		CodeReceiptInvalid,
		CodeRollIDEmpty:
		return codes.InvalidArgument

	// DeadlineExceeded - evaluation ran out of time
	case CodeDiceHalted:
		return codes.DeadlineExceeded

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
