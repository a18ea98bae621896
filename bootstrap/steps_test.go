package bootstrap

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/kbukum/gokernel/config"
	"github.com/kbukum/gokernel/errors"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/providers"
)

func newMemoryManager(name string, fn config.DriverFunc) *config.Manager {
	m := config.NewManager()
	m.Extend(name, fn)
	return m
}

func TestLoadConfigurationDefaultDriver(t *testing.T) {
	called := ""
	m := config.NewManager()
	m.Extend(config.DefaultLoader, config.DriverFunc(func(ctx context.Context, repo *config.Repository) error {
		called = config.DefaultLoader
		return repo.Merge(map[string]any{"name": "ledger"})
	}))

	repo := config.NewRepository()
	step := NewLoadConfiguration(repo, m, logger.Nop())
	if err := step.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if called != config.DefaultLoader {
		t.Errorf("expected the %q driver to run, got %q", config.DefaultLoader, called)
	}
	if got := repo.GetString("name", ""); got != "ledger" {
		t.Errorf("expected name to be loaded, got %q", got)
	}
}

func TestLoadConfigurationSelectsDriver(t *testing.T) {
	m := newMemoryManager("memory", func(ctx context.Context, repo *config.Repository) error {
		return repo.Merge(map[string]any{"debug": true})
	})
	m.Extend(config.DefaultLoader, config.DriverFunc(func(ctx context.Context, repo *config.Repository) error {
		t.Error("default driver must not run")
		return nil
	}))

	repo := config.NewRepository()
	repo.Set(config.KeyConfigLoader, "memory")
	if err := NewLoadConfiguration(repo, m, logger.Nop()).Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if !repo.GetBool("debug", false) {
		t.Error("expected memory driver output in repository")
	}
}

func TestLoadConfigurationFailures(t *testing.T) {
	cause := stderrors.New("vault sealed")

	tests := []struct {
		name     string
		loader   string
		wantCode errors.ErrorCode
		wantErr  error
	}{
		{"unknown driver", "consul", errors.ErrCodeConfigDriverNotFound, nil},
		{"driver error", "memory", errors.ErrCodeConfigLoadFailed, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemoryManager("memory", func(ctx context.Context, repo *config.Repository) error {
				return cause
			})
			repo := config.NewRepository()
			repo.Set(config.KeyConfigLoader, tt.loader)

			err := NewLoadConfiguration(repo, m, logger.Nop()).Bootstrap(context.Background())
			if !errors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if !errors.IsFatal(err) {
				t.Error("configuration failures must be fatal")
			}
			if tt.wantErr != nil && !stderrors.Is(err, tt.wantErr) {
				t.Errorf("expected cause %v to be preserved, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterServiceProviders(t *testing.T) {
	calls := &callLog{}
	a := newFake("A", true, true)
	b := newFake("B", false, true)
	b.registerErr = stderrors.New("missing credentials")
	c := newFake("C", false, true)
	for _, p := range []*fakeProvider{a, b, c} {
		p.calls = calls
	}

	f := newFixture(t, entry("a", a), entry("b", b), entry("c", c))
	step := NewRegisterServiceProviders(f.registry, logger.Nop())
	if err := step.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	assertState(t, f.registry, "a", providers.StateRegistered)
	assertState(t, f.registry, "b", providers.StateFailed)
	assertState(t, f.registry, "c", providers.StateRegistered)

	want := []string{"register:A", "register:B", "register:C"}
	got := calls.list()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRegisterServiceProvidersRequiredFailure(t *testing.T) {
	a := newFake("A", true, true)
	a.registerErr = stderrors.New("schema mismatch")
	b := newFake("B", false, true)

	f := newFixture(t, entry("a", a), entry("b", b))
	err := NewRegisterServiceProviders(f.registry, logger.Nop()).Bootstrap(context.Background())
	if !errors.HasCode(err, errors.ErrCodeProviderCannotBeRegistered) {
		t.Fatalf("expected PROVIDER_CANNOT_BE_REGISTERED, got %v", err)
	}
	if b.registers.Load() != 0 {
		t.Error("providers after the failure must not be registered")
	}
}

func TestStepFunc(t *testing.T) {
	ran := false
	var step Bootstrapper = StepFunc{StepName: "warm-cache", Fn: func(ctx context.Context) error {
		ran = true
		return nil
	}}
	if step.Name() != "warm-cache" {
		t.Errorf("expected name warm-cache, got %q", step.Name())
	}
	if err := step.Bootstrap(context.Background()); err != nil || !ran {
		t.Errorf("expected step to run, err=%v", err)
	}
}
