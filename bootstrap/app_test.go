package bootstrap

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/gokernel/config"
	"github.com/kbukum/gokernel/di"
	"github.com/kbukum/gokernel/errors"
	"github.com/kbukum/gokernel/events"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/observability"
	"github.com/kbukum/gokernel/providers"
)

func memoryLoader(settings map[string]any) Option {
	m := newMemoryManager("memory", func(ctx context.Context, repo *config.Repository) error {
		return repo.Merge(settings)
	})
	return func(o *appOptions) {
		WithConfigManager(m)(o)
		WithConfigLoader("memory")(o)
	}
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	base := []Option{
		WithLogger(logger.Nop()),
		memoryLoader(map[string]any{"version": "2.1.0"}),
	}
	app := New("ledger", append(base, opts...)...)
	app.Summary.SetOutput(&bytes.Buffer{})
	return app
}

type topicRecorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *topicRecorder) listen(d *events.Dispatcher, topics ...events.Topic) {
	for _, topic := range topics {
		d.Listen(topic, func(ctx context.Context, ev events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			label := string(ev.Topic)
			if p, ok := ev.Payload.(events.StepPayload); ok {
				label += ":" + p.Step
			}
			r.topics = append(r.topics, label)
			return nil
		})
	}
}

func (r *topicRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func TestNew(t *testing.T) {
	app := New("ledger", WithLogger(logger.Nop()), WithVersion("1.0.0"))
	if app.Name != "ledger" || app.Version != "1.0.0" {
		t.Errorf("unexpected name/version %q/%q", app.Name, app.Version)
	}
	if app.Container == nil || app.Providers == nil || app.Events == nil {
		t.Fatal("expected kernel services to be created")
	}
	if app.Repository.GetString("name", "") != "ledger" {
		t.Error("expected the service name to be seeded")
	}
	if app.Config != nil {
		t.Error("config must not be loaded before Bootstrap")
	}
}

func TestAppBootstrap(t *testing.T) {
	a := newFake("A", true, true)
	b := newFake("B", false, false)
	app := newTestApp(t, WithProvider("a", a), WithProvider("b", b))

	rec := &topicRecorder{}
	rec.listen(app.Events, events.Bootstrapping, events.Bootstrapped)

	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if app.Config == nil || app.Config.Name != "ledger" {
		t.Fatalf("expected loaded config, got %+v", app.Config)
	}
	if app.Version != "2.1.0" {
		t.Errorf("expected version from configuration, got %q", app.Version)
	}
	assertState(t, app.Providers, "a", providers.StateBooted)
	assertState(t, app.Providers, "b", providers.StateDeferred)
	if a.registers.Load() != 1 || b.registers.Load() != 1 {
		t.Error("expected every provider to be registered once")
	}

	want := []string{
		"kernel.bootstrapping:load-configuration",
		"kernel.bootstrapped:load-configuration",
		"kernel.bootstrapping:configure-kernel",
		"kernel.bootstrapped:configure-kernel",
		"kernel.bootstrapping:register-service-providers",
		"kernel.bootstrapped:register-service-providers",
		"kernel.bootstrapping:boot-service-providers",
		"kernel.bootstrapped:boot-service-providers",
	}
	if got := rec.list(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("unexpected kernel events:\n%v", got)
	}

	if len(app.Summary.Steps()) != 4 {
		t.Errorf("expected 4 tracked steps, got %d", len(app.Summary.Steps()))
	}
	if err := app.Bootstrap(context.Background()); err == nil {
		t.Error("expected second Bootstrap to fail")
	}
}

func TestAppBootstrapConfigFailureIsFatal(t *testing.T) {
	cause := stderrors.New("config server unreachable")
	p := newFake("P", true, true)
	m := newMemoryManager("memory", func(ctx context.Context, repo *config.Repository) error {
		return cause
	})
	app := New("ledger",
		WithLogger(logger.Nop()),
		WithConfigManager(m),
		WithConfigLoader("memory"),
		WithProvider("p", p),
	)

	err := app.Bootstrap(context.Background())
	if !errors.HasCode(err, errors.ErrCodeConfigLoadFailed) {
		t.Fatalf("expected CONFIG_LOAD_FAILED, got %v", err)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected the driver error to be preserved")
	}
	if p.registers.Load() != 0 || p.boots.Load() != 0 {
		t.Error("providers must not run when configuration fails")
	}
}

func TestAppBootstrapInvalidConfig(t *testing.T) {
	app := newTestApp(t, memoryLoader(map[string]any{"environment": "moon"}))
	err := app.Bootstrap(context.Background())
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestAppBootstrapRequiredProviderFailure(t *testing.T) {
	a := newFake("Archive", true, true).failBoot(stderrors.New("bucket missing"))
	app := newTestApp(t, WithProvider("archive", a))

	err := app.Bootstrap(context.Background())
	if !errors.HasCode(err, errors.ErrCodeProviderCannotBeBooted) {
		t.Fatalf("expected PROVIDER_CANNOT_BE_BOOTED, got %v", err)
	}
	if !strings.Contains(err.Error(), "Archive") {
		t.Errorf("expected error to name the provider, got %q", err)
	}
}

func TestAppInvalidProviderOption(t *testing.T) {
	app := newTestApp(t,
		WithProvider("cache", newFake("Cache", false, true)),
		WithProvider("cache", newFake("Cache2", false, true)),
	)
	err := app.Bootstrap(context.Background())
	if !errors.HasCode(err, errors.ErrCodeProviderAlreadyRegistered) {
		t.Fatalf("expected PROVIDER_ALREADY_REGISTERED, got %v", err)
	}
}

func TestAppRegisterAfterBootstrap(t *testing.T) {
	app := newTestApp(t)
	if err := app.Register("early", newFake("Early", false, true)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := app.Register("late", newFake("Late", false, true)); err == nil {
		t.Error("expected Register after Bootstrap to fail")
	}
	assertState(t, app.Providers, "early", providers.StateBooted)
}

func TestAppReevaluation(t *testing.T) {
	d := newFake("D", false, false)
	app := newTestApp(t, WithProvider("d", d))
	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	d.enabled.Store(true)
	_ = app.Events.Dispatch(context.Background(), events.BlockApplied, nil)
	assertState(t, app.Providers, "d", providers.StateBooted)
	if len(app.Subscriptions()) != 1 {
		t.Errorf("expected one standing reaction, got %d", len(app.Subscriptions()))
	}
}

func TestAppSharedServices(t *testing.T) {
	repo := config.NewRepository()
	repo.Set("indexer.start", 10)
	dispatcher := events.NewDispatcher(events.WithLogger(logger.Nop()))
	container := di.NewContainer()
	epoch := events.Topic("chain.epoch.closed")

	d := newFake("D", false, false)
	app := newTestApp(t,
		WithRepository(repo),
		WithDispatcher(dispatcher),
		WithContainer(container),
		WithTopic(epoch),
		WithProvider("d", d),
	)
	if app.Repository != repo || app.Events != dispatcher || app.Container != container {
		t.Fatal("expected the supplied services to be used")
	}
	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if repo.GetInt("indexer.start", 0) != 10 {
		t.Error("expected pre-populated settings to survive loading")
	}

	d.enabled.Store(true)
	_ = dispatcher.Dispatch(context.Background(), events.BlockApplied, nil)
	assertState(t, app.Providers, "d", providers.StateDeferred)

	_ = dispatcher.Dispatch(context.Background(), epoch, nil)
	assertState(t, app.Providers, "d", providers.StateBooted)
}

func TestAppConfiguredLoggingReachesKernel(t *testing.T) {
	prevLogger := logger.GetGlobalLogger()
	prevLevel := zerolog.GlobalLevel()
	prevStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe failed: %v", err)
	}
	os.Stderr = w
	defer func() {
		os.Stderr = prevStderr
		logger.SetGlobalLogger(prevLogger)
		logger.RegisterDefaults()
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var out bytes.Buffer
	copied := make(chan struct{})
	go func() {
		_, _ = io.Copy(&out, r)
		close(copied)
	}()

	d := newFake("D", false, false)
	app := New("ledger",
		memoryLoader(map[string]any{
			"logging": map[string]any{"level": "debug", "format": "json", "output": "stderr"},
		}),
		WithProvider("d", d),
	)
	app.Summary.SetOutput(&bytes.Buffer{})

	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	d.enabled.Store(true)
	_ = app.Events.Dispatch(context.Background(), events.BlockApplied, nil)

	os.Stderr = prevStderr
	_ = w.Close()
	<-copied

	seen := map[string]string{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("expected json log lines, got %q", line)
		}
		msg, _ := entry["message"].(string)
		component, _ := entry[logger.FieldComponent].(string)
		seen[msg] = component
	}

	for msg, component := range map[string]string{
		"Deferring D":                    logger.ComponentBootstrap,
		"Booting D":                      logger.ComponentBootstrap,
		"Service provider state changed": logger.ComponentProviders,
		"Listener attached":              logger.ComponentEvents,
	} {
		got, ok := seen[msg]
		if !ok {
			t.Errorf("expected %q on the configured output, got %v", msg, seen)
			continue
		}
		if got != component {
			t.Errorf("expected %q from component %q, got %q", msg, component, got)
		}
	}
}

func TestAppTerminate(t *testing.T) {
	calls := &callLog{}
	a := newFake("A", false, true)
	b := newFake("B", false, false)
	c := newFake("C", false, true)
	for _, p := range []*fakeProvider{a, b, c} {
		p.calls = calls
	}
	app := newTestApp(t, WithProvider("a", a), WithProvider("b", b), WithProvider("c", c))

	stopped := false
	app.OnStop(func(ctx context.Context) error {
		stopped = true
		return nil
	})
	rec := &topicRecorder{}
	rec.listen(app.Events, events.Terminated)

	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := app.Terminate(context.Background()); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}

	if !stopped {
		t.Error("expected OnStop hook to run")
	}
	assertState(t, app.Providers, "a", providers.StateDisposed)
	assertState(t, app.Providers, "b", providers.StateDeferred)
	assertState(t, app.Providers, "c", providers.StateDisposed)

	got := calls.list()
	want := []string{"register:A", "register:B", "register:C", "boot:A", "boot:C", "dispose:C", "dispose:A"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected calls %v, got %v", want, got)
	}
	if topics := rec.list(); len(topics) != 1 || topics[0] != string(events.Terminated) {
		t.Errorf("expected a terminated event, got %v", topics)
	}
	if app.Events.Listeners(events.BlockApplied) != 0 {
		t.Error("expected reactions to be detached")
	}

	if err := app.Terminate(context.Background()); err != nil {
		t.Errorf("second Terminate should be a no-op, got %v", err)
	}
}

func TestAppTerminateReportsDisposeErrors(t *testing.T) {
	p := newFake("P", false, true)
	p.disposeErr = stderrors.New("flush failed")
	app := newTestApp(t, WithProvider("p", p))
	_ = app.Bootstrap(context.Background())

	err := app.Terminate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Errorf("expected dispose error, got %v", err)
	}
}

func TestAppRunTask(t *testing.T) {
	p := newFake("P", false, true)
	app := newTestApp(t, WithProvider("p", p))

	var order []string
	app.OnStart(func(ctx context.Context) error {
		order = append(order, "start")
		return nil
	})
	app.OnReady(func(ctx context.Context) error {
		order = append(order, "ready")
		return nil
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		if !app.Providers.Loaded("p") {
			t.Error("expected provider to be booted during the task")
		}
		cfg, err := di.Resolve[*config.ServiceConfig](ctx, app.Container, di.Kernel.Config)
		if err != nil || cfg.Name != "ledger" {
			t.Errorf("expected config in container, got %v, %v", cfg, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if strings.Join(order, ",") != "start,ready,task" {
		t.Errorf("unexpected order %v", order)
	}
	if p.disposes.Load() != 1 {
		t.Error("expected provider to be disposed after the task")
	}
}

func TestAppRunStopsOnCancel(t *testing.T) {
	p := newFake("P", false, true)
	app := newTestApp(t, WithProvider("p", p))

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error {
		cancel()
		return nil
	})

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	assertState(t, app.Providers, "p", providers.StateDisposed)
}

func TestAppRunFailedStartupCleansUp(t *testing.T) {
	a := newFake("A", false, true)
	b := newFake("B", true, true).failBoot(stderrors.New("boom"))
	app := newTestApp(t, WithProvider("a", a), WithProvider("b", b))

	if err := app.Run(context.Background()); err == nil {
		t.Fatal("expected Run to fail")
	}
	if a.disposes.Load() != 1 {
		t.Error("expected booted providers to be disposed after a failed startup")
	}
}

type ledgerConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Confirmations int `yaml:"confirmations" mapstructure:"confirmations"`
}

func (c *ledgerConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Confirmations == 0 {
		c.Confirmations = 6
	}
}

func TestAppDecode(t *testing.T) {
	app := newTestApp(t, memoryLoader(map[string]any{"confirmations": 12}))
	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	var cfg ledgerConfig
	if err := app.Decode(&cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.Name != "ledger" || cfg.Confirmations != 12 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestAppMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observability.NewKernelMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewKernelMetrics failed: %v", err)
	}

	d := newFake("D", false, false)
	app := newTestApp(t, WithMetrics(metrics), WithProvider("d", d))
	_ = app.Bootstrap(context.Background())

	d.enabled.Store(true)
	_ = app.Events.Dispatch(context.Background(), events.BlockApplied, nil)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	if totals["kernel.provider.reactions"] != 1 {
		t.Errorf("expected 1 reaction, got %d", totals["kernel.provider.reactions"])
	}
	if totals["kernel.provider.transitions"] != 2 {
		t.Errorf("expected deferred and booted transitions, got %d", totals["kernel.provider.transitions"])
	}
}
