package store

import (
	"context"
	"sort"
	"sync"

	"github.com/efreitasn/matchengine/internal/domain"
)

// MemoryTradeStore is a thread-safe in-memory trade store keyed by
// symbol. Each symbol's trades are kept in execution order.
type MemoryTradeStore struct {
	mu     sync.RWMutex
	trades map[string][]domain.Trade // symbol → trades (chronological)
	seen   map[string]struct{}       // trade ids already stored
}

// NewMemoryTradeStore creates an empty MemoryTradeStore.
func NewMemoryTradeStore() *MemoryTradeStore {
	return &MemoryTradeStore{
		trades: make(map[string][]domain.Trade),
		seen:   make(map[string]struct{}),
	}
}

// AppendTrades stores trades, skipping ids that are already present.
func (s *MemoryTradeStore) AppendTrades(_ context.Context, trades []domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		if _, ok := s.seen[t.TradeID]; ok {
			continue
		}
		s.seen[t.TradeID] = struct{}{}

		list := s.trades[t.Symbol]
		// Trades almost always arrive in order; insert in place otherwise.
		i := sort.Search(len(list), func(i int) bool { return executedBefore(t, list[i]) })
		if i == len(list) {
			s.trades[t.Symbol] = append(list, t)
			continue
		}
		list = append(list, domain.Trade{})
		copy(list[i+1:], list[i:])
		list[i] = t
		s.trades[t.Symbol] = list
	}
	return nil
}

// TradesBySymbol returns up to limit trades for symbol, newest first.
// Returns an empty slice if no trades exist for the symbol.
func (s *MemoryTradeStore) TradesBySymbol(_ context.Context, symbol string, limit int) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.trades[symbol]
	n := min(max(limit, 0), len(list))
	result := make([]domain.Trade, 0, n)
	for i := len(list) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, list[i])
	}
	return result, nil
}

// Len returns the number of stored trades across all symbols.
func (s *MemoryTradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// executedBefore orders trades by execution time, then by sequence.
func executedBefore(a, b domain.Trade) bool {
	if !a.ExecutedAt.Equal(b.ExecutedAt) {
		return a.ExecutedAt.Before(b.ExecutedAt)
	}
	return a.Sequence < b.Sequence
}
