// Package errors provides the kernel's structured error type.
// Every failure that crosses a package boundary (configuration loading,
// provider registration and boot, registry transitions) is an *AppError
// carrying a machine-readable code, the offending provider or driver in
// Details, and the original cause for errors.Is / errors.As.
package errors
