package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Compactor periodically prunes cancelled and filled orders from the price
// levels of every book. Matching discards such orders lazily, but only at
// the front of the levels it reaches; the sweep keeps deeper levels and
// level counts honest.
type Compactor struct {
	interval time.Duration
	exchange *Exchange
	logger   *slog.Logger
	pruned   atomic.Int64
}

// NewCompactor creates a Compactor over the books of exchange.
func NewCompactor(interval time.Duration, exchange *Exchange, logger *slog.Logger) *Compactor {
	return &Compactor{
		interval: interval,
		exchange: exchange,
		logger:   logger,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and compacts every book. It stops when ctx is cancelled.
func (c *Compactor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tick()
			}
		}
	}()
}

// tick compacts each book in turn, holding one book lock at a time.
func (c *Compactor) tick() {
	for _, b := range c.exchange.Books() {
		n := b.Compact()
		if n == 0 {
			continue
		}
		c.pruned.Add(int64(n))
		c.logger.Debug("order book compacted",
			slog.String("symbol", b.Symbol()),
			slog.Int("pruned", n),
		)
	}
}

// Pruned returns the total number of dead entries removed so far.
func (c *Compactor) Pruned() int64 {
	return c.pruned.Load()
}
