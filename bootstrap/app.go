package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gokernel/config"
	"github.com/kbukum/gokernel/di"
	"github.com/kbukum/gokernel/events"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/observability"
	"github.com/kbukum/gokernel/providers"
)

// App is the kernel of a service. It owns the configuration repository,
// the provider registry and the event dispatcher, and drives them through
// a fixed startup sequence:
//
//	load-configuration → configure-kernel → register-service-providers → boot-service-providers
//
// Example:
//
//	app := bootstrap.New("ledger",
//	    bootstrap.WithProvider("cache", cache.NewProvider()),
//	    bootstrap.WithProvider("indexer", indexer.NewProvider()),
//	)
//	if err := app.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
type App struct {
	Name       string
	Version    string
	Config     *config.ServiceConfig
	Repository *config.Repository
	Manager    *config.Manager
	Providers  *providers.Registry
	Events     *events.Dispatcher
	Container  di.Container
	Logger     *logger.Logger
	Metrics    *observability.KernelMetrics
	Summary    *Summary

	gracefulTimeout time.Duration
	customLogger    bool
	ownsEvents      bool
	booter          *BootServiceProviders
	register        *RegisterServiceProviders
	steps           []Bootstrapper

	mu           sync.Mutex
	bootstrapped bool
	terminated   bool
	shutdown     []func(context.Context) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// New creates an application kernel. Nothing is loaded or booted until
// Bootstrap or Run is called.
func New(name string, opts ...Option) *App {
	o := resolveOptions(name, opts)

	app := &App{
		Name:            name,
		Version:         o.version,
		Repository:      o.repository,
		Manager:         o.manager,
		Events:          o.dispatcher,
		Container:       o.container,
		Logger:          o.logger,
		Metrics:         o.metrics,
		customLogger:    o.customLogger,
		ownsEvents:      o.ownsDispatcher,
		gracefulTimeout: o.gracefulTimeout,
		Summary:         NewSummary(name, o.version),
	}

	if app.Metrics == nil {
		m, err := observability.NewKernelMetrics(observability.Meter("gokernel"))
		if err != nil {
			app.Logger.Warn("Kernel metrics unavailable", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
		app.Metrics = m
	}

	app.Providers = providers.NewRegistry(
		providers.WithEmitter(app.Events),
		providers.WithMetrics(app.Metrics),
		providers.WithLogger(app.Logger.WithComponent(logger.ComponentProviders)),
	)

	_ = app.Repository.Merge(map[string]any{"name": name})
	if o.configLoader != "" {
		app.Repository.Set(config.KeyConfigLoader, o.configLoader)
	}

	var errs []error
	for _, p := range o.providers {
		if err := app.Providers.Set(p.name, p.provider); err != nil {
			errs = append(errs, err)
		}
	}

	app.booter = NewBootServiceProviders(app.Providers, app.Events,
		WithReevaluationTopic(o.topic),
		WithBootMetrics(app.Metrics),
		WithBootLogger(app.Logger.WithComponent(logger.ComponentBootstrap)),
	)
	app.register = NewRegisterServiceProviders(app.Providers, app.Logger.WithComponent(logger.ComponentBootstrap))
	app.steps = []Bootstrapper{
		NewLoadConfiguration(app.Repository, app.Manager, app.Logger.WithComponent(logger.ComponentBootstrap)),
		StepFunc{StepName: "configure-kernel", Fn: app.configureKernel},
		app.register,
		app.booter,
	}
	if err := stderrors.Join(errs...); err != nil {
		app.steps = append([]Bootstrapper{StepFunc{
			StepName: "register-options",
			Fn:       func(context.Context) error { return err },
		}}, app.steps...)
	}
	return app
}

// Register adds a provider under name. Providers must be registered before
// Bootstrap; registration order is boot order.
func (a *App) Register(name string, p providers.ServiceProvider) error {
	a.mu.Lock()
	started := a.bootstrapped
	a.mu.Unlock()
	if started {
		return fmt.Errorf("cannot register %q: application already bootstrapped", name)
	}
	return a.Providers.Set(name, p)
}

// Bootstrap runs every startup step in order and stops at the first error.
// After a successful return every enabled provider is booted and each
// provider reached has a standing reaction on the re-evaluation topic.
func (a *App) Bootstrap(ctx context.Context) error {
	a.mu.Lock()
	if a.bootstrapped {
		a.mu.Unlock()
		return fmt.Errorf("application %q already bootstrapped", a.Name)
	}
	a.bootstrapped = true
	a.mu.Unlock()

	start := time.Now()
	a.Logger.Info("Bootstrapping application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	for _, step := range a.steps {
		if err := a.runStep(ctx, step); err != nil {
			a.Logger.Error("Bootstrap step failed", map[string]interface{}{
				logger.FieldPhase: step.Name(),
				logger.FieldError: err.Error(),
			})
			return err
		}
	}

	a.Summary.SetStartupDuration(time.Since(start))
	return nil
}

func (a *App) runStep(ctx context.Context, step Bootstrapper) error {
	name := step.Name()
	payload := events.StepPayload{Step: name}

	ctx, span := observability.StartSpan(ctx, observability.SpanBootstrapStep)
	span.SetAttributes(attribute.String(observability.AttrStepName, name))

	a.dispatch(ctx, events.Bootstrapping, payload)
	start := time.Now()
	err := step.Bootstrap(ctx)
	a.Summary.TrackStep(name, time.Since(start), err)
	observability.EndSpan(span, err)
	if err != nil {
		return err
	}
	a.dispatch(ctx, events.Bootstrapped, payload)
	return nil
}

// rebindLoggers moves the kernel components from the startup logger onto
// the one built from configuration.
func (a *App) rebindLoggers() {
	loggers := logger.RegisterDefaults()

	a.Providers.SetLogger(loggers[logger.ComponentProviders])
	a.booter.SetLogger(loggers[logger.ComponentBootstrap])
	a.register.SetLogger(loggers[logger.ComponentBootstrap])
	if a.ownsEvents {
		a.Events.SetLogger(loggers[logger.ComponentEvents])
	}
}

// configureKernel decodes the loaded repository into ServiceConfig and
// rebuilds the ambient stack (logger, telemetry) from it.
func (a *App) configureKernel(ctx context.Context) error {
	cfg, err := config.Load(a.Repository)
	if err != nil {
		return err
	}
	a.Config = cfg
	if cfg.Version != "" {
		a.Version = cfg.Version
	}
	a.Summary.SetVersion(a.Version)

	if !a.customLogger {
		logger.Init(&cfg.Logging)
		a.Logger = logger.GetGlobalLogger()
		a.rebindLoggers()
	}

	if err := a.Container.Singleton(di.Kernel.Config, cfg); err != nil {
		return err
	}

	if !cfg.Telemetry.Enabled {
		return nil
	}
	tp, err := observability.InitTracer(ctx, &observability.TracerConfig{
		ServiceName:    cfg.Name,
		ServiceVersion: a.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
		ServiceName:    cfg.Name,
		ServiceVersion: a.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Interval:       cfg.Telemetry.Interval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("init meter: %w", err)
	}

	a.mu.Lock()
	a.shutdown = append(a.shutdown, tp.Shutdown, mp.Shutdown)
	a.mu.Unlock()
	return nil
}

// Decode unmarshals the loaded configuration into an application config,
// applies its defaults and validates it. Call it after Bootstrap or from
// an OnStart hook.
func (a *App) Decode(cfg Config) error {
	if err := a.Repository.Unmarshal("", cfg); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

// Run executes the full lifecycle for long-running services:
// Bootstrap → OnStart hooks → OnReady hooks → block on signal → Terminate.
func (a *App) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		a.terminateQuietly()
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.stop()
}

// RunTask bootstraps the application, runs task and terminates once task
// returns or the process receives SIGINT/SIGTERM.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		a.terminateQuietly()
		return err
	}

	taskCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	if err := a.Bootstrap(ctx); err != nil {
		return err
	}
	if err := a.bindKernel(); err != nil {
		return err
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}
	a.DisplaySummary()
	return nil
}

// bindKernel exposes the kernel services through the container so hooks
// and providers can resolve them by key.
func (a *App) bindKernel() error {
	bindings := map[string]any{
		di.Kernel.Repository: a.Repository,
		di.Kernel.Logger:     a.Logger,
		di.Kernel.Events:     a.Events,
		di.Kernel.Providers:  a.Providers,
	}
	for key, v := range bindings {
		if a.Container.Has(key) {
			continue
		}
		if err := a.Container.Singleton(key, v); err != nil {
			return err
		}
	}
	return nil
}

// DisplaySummary prints the startup summary with the current provider states.
func (a *App) DisplaySummary() {
	a.Summary.DisplaySummary(a.Providers.Snapshot(), a.Logger)
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Terminate stops the application: OnStop hooks run, every standing
// reaction is detached, booted providers are disposed in reverse
// registration order and the container and telemetry are shut down.
// Calling it more than once is a no-op.
func (a *App) Terminate(ctx context.Context) error {
	a.mu.Lock()
	if a.terminated {
		a.mu.Unlock()
		return nil
	}
	a.terminated = true
	shutdown := a.shutdown
	a.shutdown = nil
	a.mu.Unlock()

	var errs []error

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		errs = append(errs, err)
	}

	a.booter.Close()

	names := a.Providers.Names()
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if !a.Providers.Loaded(name) {
			continue
		}
		if err := a.Providers.Dispose(ctx, name); err != nil {
			a.Logger.Error("Service provider failed to dispose", map[string]interface{}{
				logger.FieldProvider: name,
				logger.FieldError:    err.Error(),
			})
			errs = append(errs, fmt.Errorf("dispose %s: %w", name, err))
		}
	}

	if err := a.Container.Close(); err != nil {
		a.Logger.Error("DI container close error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		errs = append(errs, err)
	}

	a.dispatch(ctx, events.Terminated, nil)
	a.Events.Close()

	for _, fn := range shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.Logger.Info("Application shutdown complete")
	return stderrors.Join(errs...)
}

func (a *App) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	return a.Terminate(ctx)
}

func (a *App) terminateQuietly() {
	if err := a.stop(); err != nil {
		a.Logger.Warn("Shutdown after failed startup reported errors", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
}

// Subscriptions returns the standing provider reactions.
func (a *App) Subscriptions() []events.Subscription {
	return a.booter.Subscriptions()
}

func (a *App) dispatch(ctx context.Context, topic events.Topic, payload any) {
	if err := a.Events.Dispatch(ctx, topic, payload); err != nil {
		a.Logger.Warn("Kernel event listener failed", map[string]interface{}{
			logger.FieldTopic: string(topic),
			logger.FieldError: err.Error(),
		})
	}
}
