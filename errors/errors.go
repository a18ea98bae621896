package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified kernel error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// HTTPStatus is the status the status API answers with for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Fatal reports whether the error must abort startup.
func (e *AppError) Fatal() bool { return IsFatalCode(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// --- Kernel error constructors ---

// ProviderCannotBeBooted is returned when a required provider fails its
// initial boot. The message carries the provider's display name and the
// message of the original failure.
func ProviderCannotBeBooted(displayName string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeProviderCannotBeBooted,
		Message:    fmt.Sprintf("Required service provider %s cannot be booted: %s", displayName, causeMessage(cause)),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"provider": displayName},
		Cause:      cause,
	}
}

// ProviderCannotBeRegistered is returned when a required provider fails to register.
func ProviderCannotBeRegistered(displayName string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeProviderCannotBeRegistered,
		Message:    fmt.Sprintf("Required service provider %s cannot be registered: %s", displayName, causeMessage(cause)),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"provider": displayName},
		Cause:      cause,
	}
}

// ProviderNotFound is returned for lookups of an unknown provider name.
func ProviderNotFound(name string) *AppError {
	return &AppError{
		Code:       ErrCodeProviderNotFound,
		Message:    fmt.Sprintf("Service provider %s is not registered.", name),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"provider": name},
	}
}

// ProviderAlreadyRegistered is returned when a name is registered twice.
func ProviderAlreadyRegistered(name string) *AppError {
	return &AppError{
		Code:       ErrCodeProviderAlreadyRegistered,
		Message:    fmt.Sprintf("Service provider %s is already registered.", name),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"provider": name},
	}
}

// InvalidTransition is returned when the registry refuses a lifecycle transition.
func InvalidTransition(name, from, to string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("Service provider %s cannot transition from %s to %s.", name, from, to),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"provider": name, "from": from, "to": to},
	}
}

// ConfigDriverNotFound is returned when no configuration loader is registered under the name.
func ConfigDriverNotFound(driver string) *AppError {
	return &AppError{
		Code:       ErrCodeConfigDriverNotFound,
		Message:    fmt.Sprintf("Configuration loader %q is not registered.", driver),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"driver": driver},
	}
}

// ConfigLoadFailed wraps a configuration loader failure.
func ConfigLoadFailed(driver string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeConfigLoadFailed,
		Message:    fmt.Sprintf("Configuration loader %q failed.", driver),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"driver": driver},
		Cause:      cause,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsFatal reports whether err is, or wraps, an AppError that aborts startup.
func IsFatal(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Fatal()
}

func causeMessage(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	var appErr *AppError
	if stderrors.As(cause, &appErr) {
		return appErr.Message
	}
	return cause.Error()
}
