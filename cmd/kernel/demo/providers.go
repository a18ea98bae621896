package demo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/kbukum/gokernel/bootstrap"
	"github.com/kbukum/gokernel/config"
	"github.com/kbukum/gokernel/di"
	"github.com/kbukum/gokernel/events"
	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/providers"
)

// StoreKey is the container key of the shared ledger store.
const StoreKey = "demo.store"

// Settings read from the configuration repository at register time.
const (
	keyActivationHeight = "demo.indexer.activation_height"
	keySunsetHeight     = "demo.indexer.sunset_height"
	keySnapshotEpoch    = "demo.snapshot.epoch"
)

// disabledByOperator reports whether name is listed under providers.disabled.
func disabledByOperator(repo *config.Repository, name string) bool {
	for _, d := range repo.GetStringSlice("providers.disabled") {
		if d == name {
			return true
		}
	}
	return false
}

// LedgerProvider owns the store every other demo provider depends on.
// It is required: without it the node cannot start.
type LedgerProvider struct {
	providers.BaseProvider
	container di.Container
	store     *Store
}

// NewLedgerProvider creates the ledger provider.
func NewLedgerProvider(c di.Container) *LedgerProvider {
	return &LedgerProvider{
		BaseProvider: providers.BaseProvider{DisplayName: "Ledger"},
		container:    c,
	}
}

func (p *LedgerProvider) Register(ctx context.Context) error {
	p.store = NewStore()
	return p.container.Singleton(StoreKey, p.store)
}

func (p *LedgerProvider) Boot(ctx context.Context) error {
	p.store.Open()
	return nil
}

func (p *LedgerProvider) Required(ctx context.Context) bool { return true }

// IndexerProvider records every block into the ledger store. It activates
// at a configured height and retires at an optional sunset height.
type IndexerProvider struct {
	providers.BaseProvider
	chain     *Chain
	repo      *config.Repository
	container di.Container
	listener  events.Listener
	log       *logger.Logger

	activation uint64
	sunset     uint64

	mu  sync.Mutex
	sub events.Subscription
}

// NewIndexerProvider creates the indexer provider.
func NewIndexerProvider(chain *Chain, repo *config.Repository, c di.Container, l events.Listener) *IndexerProvider {
	return &IndexerProvider{
		BaseProvider: providers.BaseProvider{DisplayName: "Indexer"},
		chain:        chain,
		repo:         repo,
		container:    c,
		listener:     l,
		log:          logger.Get("indexer"),
	}
}

func (p *IndexerProvider) Register(ctx context.Context) error {
	activation := p.repo.GetInt(keyActivationHeight, 5)
	if activation < 0 {
		return fmt.Errorf("%s must not be negative, got %d", keyActivationHeight, activation)
	}
	sunset := p.repo.GetInt(keySunsetHeight, 0)
	if sunset < 0 {
		return fmt.Errorf("%s must not be negative, got %d", keySunsetHeight, sunset)
	}
	p.activation = uint64(activation)
	p.sunset = uint64(sunset)
	if p.sunset != 0 && p.sunset <= p.activation {
		return fmt.Errorf("sunset height %d must be above activation height %d", p.sunset, p.activation)
	}
	return nil
}

func (p *IndexerProvider) Boot(ctx context.Context) error {
	store, err := di.Resolve[*Store](ctx, p.container, StoreKey)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sub = p.listener.Listen(events.BlockApplied, func(ctx context.Context, ev events.Event) error {
		block, ok := ev.Payload.(events.BlockPayload)
		if !ok {
			return nil
		}
		return store.Put(block.Height, blockHash(block.Height))
	})
	p.log.Info("Indexer attached", map[string]interface{}{"height": p.chain.Height()})
	return nil
}

func (p *IndexerProvider) Dispose(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		p.sub.Unsubscribe()
		p.sub = nil
	}
	return nil
}

func (p *IndexerProvider) EnableWhen(ctx context.Context) bool {
	if disabledByOperator(p.repo, "indexer") {
		return false
	}
	h := p.chain.Height()
	return h >= p.activation && (p.sunset == 0 || h < p.sunset)
}

func (p *IndexerProvider) DisableWhen(ctx context.Context) bool {
	return disabledByOperator(p.repo, "indexer") || (p.sunset != 0 && p.chain.Height() >= p.sunset)
}

// SnapshotProvider is active on even epochs and idle on odd ones, so it
// cycles between booted and disposed for the life of the node.
type SnapshotProvider struct {
	providers.BaseProvider
	chain *Chain
	repo  *config.Repository
	epoch uint64

	snapshots int
}

// NewSnapshotProvider creates the snapshot provider.
func NewSnapshotProvider(chain *Chain, repo *config.Repository) *SnapshotProvider {
	return &SnapshotProvider{
		BaseProvider: providers.BaseProvider{DisplayName: "Snapshot"},
		chain:        chain,
		repo:         repo,
	}
}

func (p *SnapshotProvider) Register(ctx context.Context) error {
	epoch := p.repo.GetInt(keySnapshotEpoch, 10)
	if epoch <= 0 {
		return fmt.Errorf("%s must be positive, got %d", keySnapshotEpoch, epoch)
	}
	p.epoch = uint64(epoch)
	return nil
}

func (p *SnapshotProvider) Boot(ctx context.Context) error {
	p.snapshots++
	return nil
}

func (p *SnapshotProvider) evenEpoch() bool {
	return (p.chain.Height()/p.epoch)%2 == 0
}

func (p *SnapshotProvider) EnableWhen(ctx context.Context) bool {
	return !disabledByOperator(p.repo, "snapshot") && p.evenEpoch()
}

func (p *SnapshotProvider) DisableWhen(ctx context.Context) bool {
	return disabledByOperator(p.repo, "snapshot") || !p.evenEpoch()
}

// Install registers the demo providers on app in dependency order.
func Install(app *bootstrap.App, chain *Chain) error {
	entries := []struct {
		name string
		p    providers.ServiceProvider
	}{
		{"ledger", NewLedgerProvider(app.Container)},
		{"indexer", NewIndexerProvider(chain, app.Repository, app.Container, app.Events)},
		{"snapshot", NewSnapshotProvider(chain, app.Repository)},
	}
	for _, e := range entries {
		if err := app.Register(e.name, e.p); err != nil {
			return err
		}
	}
	return nil
}

func blockHash(height uint64) string {
	sum := sha256.Sum256([]byte(strconv.FormatUint(height, 10)))
	return hex.EncodeToString(sum[:8])
}
