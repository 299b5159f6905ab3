package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeDiceLex          = "DICE_LEX"
	CodeDiceParse        = "DICE_PARSE"
	CodeDiceType         = "DICE_TYPE"
	CodeDiceRange        = "DICE_RANGE"
	CodeDiceResolve      = "DICE_RESOLVE"
	CodeDiceHalted       = "DICE_HALTED"
	CodeExpressionEmpty  = "EXPRESSION_EMPTY"
	CodeInvalidFilter    = "INVALID_FILTER"
	CodeInvalidPageToken = "INVALID_PAGE_TOKEN"
	CodeInvalidSeed      = "INVALID_SEED"
	CodeReceiptInvalid   = "RECEIPT_INVALID"
	CodeRollIDEmpty      = "ROLL_ID_EMPTY"
	CodeNotFound         = "NOT_FOUND"
)

// KnownCodes lists every code the catalogs must translate.
var KnownCodes = []Code{
	CodeDiceLex,
	CodeDiceParse,
	CodeDiceType,
	CodeDiceRange,
	CodeDiceResolve,
	CodeDiceHalted,
	CodeExpressionEmpty,
	CodeInvalidFilter,
	CodeInvalidPageToken,
	CodeInvalidSeed,
	CodeReceiptInvalid,
	CodeRollIDEmpty,
	CodeNotFound,
}
