package providers

import "context"

// ServiceProvider is the capability set every pluggable unit implements.
// Register, Boot and Dispose may block; the kernel awaits each call before
// moving the provider to its next transition.
type ServiceProvider interface {
	// Name returns a human-readable name for diagnostics. It may differ
	// from the key the provider is registered under.
	Name() string

	// Register performs one-time setup such as constructing internal resources.
	Register(ctx context.Context) error

	// Boot activates the provider so its functionality is live.
	Boot(ctx context.Context) error

	// Dispose deactivates the provider and releases its resources.
	Dispose(ctx context.Context) error

	// Required reports whether an initial boot failure must abort startup.
	Required(ctx context.Context) bool

	// EnableWhen reports whether the provider should currently be active.
	EnableWhen(ctx context.Context) bool

	// DisableWhen reports whether an active provider should now be deactivated.
	DisableWhen(ctx context.Context) bool
}

// BaseProvider supplies the common defaults: optional, always enabled,
// never disabled, and no-op Register/Dispose. Embed it and override what
// the provider needs.
type BaseProvider struct {
	DisplayName string
}

func (b BaseProvider) Name() string                         { return b.DisplayName }
func (b BaseProvider) Register(ctx context.Context) error   { return nil }
func (b BaseProvider) Dispose(ctx context.Context) error    { return nil }
func (b BaseProvider) Required(ctx context.Context) bool    { return false }
func (b BaseProvider) EnableWhen(ctx context.Context) bool  { return true }
func (b BaseProvider) DisableWhen(ctx context.Context) bool { return false }
