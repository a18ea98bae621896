package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeConfigLoadFailed indicates the configuration loader failed.
	ErrCodeConfigLoadFailed ErrorCode = "CONFIG_LOAD_FAILED"
	// ErrCodeConfigDriverNotFound indicates an unknown configuration loader was requested.
	ErrCodeConfigDriverNotFound ErrorCode = "CONFIG_DRIVER_NOT_FOUND"
)

// Provider lifecycle errors
const (
	// ErrCodeProviderCannotBeBooted indicates a required provider failed its initial boot.
	ErrCodeProviderCannotBeBooted ErrorCode = "PROVIDER_CANNOT_BE_BOOTED"
	// ErrCodeProviderCannotBeRegistered indicates a required provider failed to register.
	ErrCodeProviderCannotBeRegistered ErrorCode = "PROVIDER_CANNOT_BE_REGISTERED"
	// ErrCodeProviderNotFound indicates no provider is registered under the name.
	ErrCodeProviderNotFound ErrorCode = "PROVIDER_NOT_FOUND"
	// ErrCodeProviderAlreadyRegistered indicates a duplicate provider name.
	ErrCodeProviderAlreadyRegistered ErrorCode = "PROVIDER_ALREADY_REGISTERED"
	// ErrCodeInvalidTransition indicates a lifecycle transition not allowed from the current state.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// Generic errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// fatalCodes abort the bootstrap sequence when surfaced to the startup caller.
var fatalCodes = map[ErrorCode]bool{
	ErrCodeConfigLoadFailed:           true,
	ErrCodeConfigDriverNotFound:       true,
	ErrCodeProviderCannotBeBooted:     true,
	ErrCodeProviderCannotBeRegistered: true,
}

// IsFatalCode returns true if the code aborts startup.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
