// Package demo contains the providers and simulated block stream used by
// the kernel command.
package demo

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kbukum/gokernel/events"
	"github.com/kbukum/gokernel/logger"
)

// Chain is a simulated block height shared by the demo providers.
type Chain struct {
	height atomic.Uint64
}

// Height returns the last applied block.
func (c *Chain) Height() uint64 { return c.height.Load() }

// Apply advances the chain by one block and announces it on emitter.
func (c *Chain) Apply(ctx context.Context, emitter events.Emitter) error {
	h := c.height.Add(1)
	return emitter.Dispatch(ctx, events.BlockApplied, events.BlockPayload{Height: h})
}

// Produce applies a block every interval until ctx is done.
func (c *Chain) Produce(ctx context.Context, emitter events.Emitter, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Apply(ctx, emitter); err != nil {
				log.Warn("Block listeners failed", map[string]interface{}{
					"height":          c.Height(),
					logger.FieldError: err.Error(),
				})
			}
		}
	}
}
