// Package sink persists trades behind the matching path. Producers append to
// an in-memory queue; one worker drains it in batches into a Store and fans
// each stored batch out to Publishers.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/efreitasn/matchengine/internal/domain"
)

// Store is durable trade storage.
type Store interface {
	// AppendTrades writes trades atomically. Trades whose id is already
	// stored are ignored.
	AppendTrades(ctx context.Context, trades []domain.Trade) error
	// TradesBySymbol returns up to limit trades for symbol, newest first.
	TradesBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Trade, error)
}

// Publisher receives every batch after it has been stored.
type Publisher interface {
	Publish(ctx context.Context, trades []domain.Trade) error
}

// Config tunes batching and retries.
type Config struct {
	MaxBatch     int
	RetryLimit   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
}

// Stats is a point-in-time view of the sink counters.
type Stats struct {
	Queued  int   `json:"queued"`
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
}

// Sink is a write-behind trade queue with a single background writer.
type Sink struct {
	store      Store
	publishers []Publisher
	logger     *slog.Logger
	cfg        Config

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []domain.Trade
	stopping bool
	started  bool

	stopOnce sync.Once
	done     chan struct{}

	written atomic.Int64
	dropped atomic.Int64
}

// New creates a Sink writing to store. Call Start to launch the worker.
func New(store Store, logger *slog.Logger, cfg Config, publishers ...Publisher) *Sink {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.RetryLimit < 0 {
		cfg.RetryLimit = 0
	}
	s := &Sink{
		store:      store,
		publishers: publishers,
		logger:     logger,
		cfg:        cfg,
		done:       make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the worker goroutine. Calling it more than once has no
// effect.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopping {
		return
	}
	s.started = true
	go s.run()
}

// AddTrade queues a single trade.
func (s *Sink) AddTrade(t domain.Trade) {
	s.AddTrades([]domain.Trade{t})
}

// AddTrades queues trades for persistence and returns immediately.
func (s *Sink) AddTrades(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		s.dropped.Add(int64(len(trades)))
		s.logger.Warn("trade sink stopped, dropping trades",
			slog.Int("count", len(trades)),
			slog.String("symbol", trades[0].Symbol),
		)
		return
	}
	s.queue = append(s.queue, trades...)
	s.mu.Unlock()
	s.cond.Signal()
}

// Trades reads trade history straight from the store.
func (s *Sink) Trades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	trades, err := s.store.TradesBySymbol(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("reading trades for %s: %w", symbol, err)
	}
	return trades, nil
}

// Stats returns the current counters.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	queued := len(s.queue)
	s.mu.Unlock()
	return Stats{
		Queued:  queued,
		Written: s.written.Load(),
		Dropped: s.dropped.Load(),
	}
}

// Shutdown stops accepting trades, waits for the worker to write what is
// still queued and returns. If ctx expires first, ErrSinkStopped is
// wrapped with the context error; the worker keeps draining in the
// background.
func (s *Sink) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		started := s.started
		s.mu.Unlock()
		s.cond.Broadcast()

		if !started {
			// No worker ever ran; start one for the final drain.
			go s.run()
		}
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrSinkStopped, ctx.Err())
	}
}

func (s *Sink) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopping {
			s.cond.Wait()
		}
		batch := s.queue
		s.queue = nil
		stopping := s.stopping
		s.mu.Unlock()

		if len(batch) > 0 {
			s.flush(batch)
		}
		if stopping {
			s.mu.Lock()
			empty := len(s.queue) == 0
			s.mu.Unlock()
			if empty {
				return
			}
		}
	}
}

// flush writes batch in chunks of at most MaxBatch trades.
func (s *Sink) flush(batch []domain.Trade) {
	size := s.cfg.MaxBatch
	if size <= 0 {
		size = len(batch)
	}
	for start := 0; start < len(batch); start += size {
		end := min(start+size, len(batch))
		chunk := batch[start:end]
		if !s.write(chunk) {
			continue
		}
		s.publish(chunk)
	}
}

// write appends chunk to the store, retrying up to RetryLimit times. It
// reports whether the chunk was stored.
func (s *Sink) write(chunk []domain.Trade) bool {
	var err error
	for attempt := 0; attempt <= s.cfg.RetryLimit; attempt++ {
		if attempt > 0 && s.cfg.RetryBackoff > 0 {
			time.Sleep(s.cfg.RetryBackoff)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		err = s.store.AppendTrades(ctx, chunk)
		cancel()
		if err == nil {
			s.written.Add(int64(len(chunk)))
			return true
		}

		s.logger.Warn("trade batch write failed",
			slog.Int("attempt", attempt+1),
			slog.Int("count", len(chunk)),
			slog.String("error", err.Error()),
		)
	}

	s.dropped.Add(int64(len(chunk)))
	s.logger.Error("dropping trade batch",
		slog.Int("count", len(chunk)),
		slog.String("first_trade_id", chunk[0].TradeID),
		slog.String("error", err.Error()),
	)
	return false
}

func (s *Sink) publish(chunk []domain.Trade) {
	for _, p := range s.publishers {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		err := p.Publish(ctx, chunk)
		cancel()
		if err != nil {
			s.logger.Warn("trade publish failed",
				slog.String("publisher", fmt.Sprintf("%T", p)),
				slog.Int("count", len(chunk)),
				slog.String("error", err.Error()),
			)
		}
	}
}
