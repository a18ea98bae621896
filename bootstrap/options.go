package bootstrap

import (
	"time"

	"github.com/kbukum/gokernel/config"
	"github.com/kbukum/gokernel/di"
	"github.com/kbukum/gokernel/events"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/observability"
	"github.com/kbukum/gokernel/providers"
)

const defaultGracefulTimeout = 15 * time.Second

// Option configures the App during creation.
type Option func(*appOptions)

type namedProvider struct {
	name     string
	provider providers.ServiceProvider
}

// appOptions collects all option values before applying to App.
type appOptions struct {
	version         string
	logger          *logger.Logger
	customLogger    bool
	container       di.Container
	gracefulTimeout time.Duration
	configLoader    string
	manager         *config.Manager
	repository      *config.Repository
	dispatcher      *events.Dispatcher
	ownsDispatcher  bool
	metrics         *observability.KernelMetrics
	topic           events.Topic
	providers       []namedProvider
}

// resolveOptions applies all options and fills in the defaults for name.
func resolveOptions(name string, opts []Option) *appOptions {
	o := &appOptions{
		gracefulTimeout: defaultGracefulTimeout,
		topic:           events.BlockApplied,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logger.NewDefault(name)
	}
	if o.container == nil {
		o.container = di.NewContainer()
	}
	if o.manager == nil {
		o.manager = config.NewDefaultManager(name)
	}
	if o.repository == nil {
		o.repository = config.NewRepository()
	}
	if o.dispatcher == nil {
		o.dispatcher = events.NewDispatcher(events.WithLogger(o.logger.WithComponent(logger.ComponentEvents)))
		o.ownsDispatcher = true
	}
	return o
}

// WithVersion sets the reported version until configuration overrides it.
func WithVersion(v string) Option {
	return func(o *appOptions) { o.version = v }
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the loaded logging settings.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
		o.customLogger = l != nil
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = d }
}

// WithContainer sets a custom DI container for the application.
func WithContainer(c di.Container) Option {
	return func(o *appOptions) { o.container = c }
}

// WithConfigLoader selects the configuration driver, overriding any
// configLoader value the repository would otherwise carry.
func WithConfigLoader(name string) Option {
	return func(o *appOptions) { o.configLoader = name }
}

// WithConfigManager replaces the default local/env driver set.
func WithConfigManager(m *config.Manager) Option {
	return func(o *appOptions) { o.manager = m }
}

// WithRepository supplies a pre-populated configuration repository.
func WithRepository(r *config.Repository) Option {
	return func(o *appOptions) { o.repository = r }
}

// WithDispatcher shares an existing event dispatcher with the kernel.
func WithDispatcher(d *events.Dispatcher) Option {
	return func(o *appOptions) { o.dispatcher = d }
}

// WithMetrics sets the kernel instruments. By default they are created
// from the global meter provider.
func WithMetrics(m *observability.KernelMetrics) Option {
	return func(o *appOptions) { o.metrics = m }
}

// WithTopic changes the event that triggers provider re-evaluation.
func WithTopic(topic events.Topic) Option {
	return func(o *appOptions) { o.topic = topic }
}

// WithProvider registers p under name. Providers boot in the order they
// are given.
func WithProvider(name string, p providers.ServiceProvider) Option {
	return func(o *appOptions) {
		o.providers = append(o.providers, namedProvider{name: name, provider: p})
	}
}
