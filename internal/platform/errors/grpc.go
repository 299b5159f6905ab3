package errors

import (
	"errors"

	"github.com/louisbranch/dicebox/internal/platform/errors/i18n"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultLocale is the default locale for error messages.
const DefaultLocale = "en-US"

// HandleError converts domain errors to gRPC status for client responses.
// It formats the user-facing message using the i18n catalog for the given locale,
// defaulting to en-US if the locale is empty.
func HandleError(err error, locale string) error {
	if err == nil {
		return nil
	}

	if locale == "" {
		locale = DefaultLocale
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		catalog := i18n.GetCatalog(locale)
		return appErr.ToGRPCStatus(catalog.Locale(), Localize(appErr, locale))
	}

	// Unknown error - return internal with generic message
	return status.Error(codes.Internal, "an unexpected error occurred")
}

// Localize renders the user-facing message for err in locale.
func Localize(err *Error, locale string) string {
	if err == nil {
		return ""
	}
	return i18n.GetCatalog(locale).Format(string(err.Code), err.Metadata)
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// UserMessage returns the localized message attached to a gRPC status error,
// falling back to the status message.
func UserMessage(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}
	for _, detail := range st.Details() {
		if msg, ok := detail.(*errdetails.LocalizedMessage); ok && msg.GetMessage() != "" {
			return msg.GetMessage()
		}
	}
	return st.Message()
}

// MessageFor returns the text a user should read for err: the localized
// message of a domain error, otherwise the message carried by a gRPC status.
func MessageFor(err error, locale string) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return Localize(appErr, locale)
	}
	return UserMessage(err)
}

// ReasonOf returns the domain code carried by a gRPC status error, or
// CodeUnknown when it carries none.
func ReasonOf(err error) Code {
	st, ok := status.FromError(err)
	if !ok {
		return GetCode(err)
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return Code(info.GetReason())
		}
	}
	return CodeUnknown
}
