package service

import (
	"context"
	"fmt"
	"time"

	"github.com/efreitasn/matchengine/internal/domain"
	"github.com/efreitasn/matchengine/internal/engine"
)

const (
	DefaultDepthLimit = 10
	MaxDepthLimit     = 100
	DefaultTradeLimit = 50
	MaxTradeLimit     = 500
)

// DepthResponse is a depth snapshot plus the spread between the best
// prices on each side.
type DepthResponse struct {
	domain.Depth
	Spread     *int64 // nil if either side empty
	SnapshotAt time.Time
}

// MarketService serves read-only market data.
type MarketService struct {
	exchange *engine.Exchange
	now      func() time.Time
}

// NewMarketService creates a new MarketService over exchange.
func NewMarketService(exchange *engine.Exchange) *MarketService {
	return &MarketService{exchange: exchange, now: time.Now}
}

// GetDepth returns the top limit price levels of both sides. Symbols that
// never traded yield empty sides.
func (s *MarketService) GetDepth(symbol string, limit int) (*DepthResponse, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxDepthLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", MaxDepthLimit),
		}
	}

	depth, _ := s.exchange.Depth(symbol, limit)
	resp := &DepthResponse{
		Depth:      depth,
		SnapshotAt: s.now(),
	}

	// Compute spread = best_ask - best_bid (null if either side empty).
	if len(depth.Bids) > 0 && len(depth.Asks) > 0 {
		spread := depth.Asks[0].Price - depth.Bids[0].Price
		resp.Spread = &spread
	}
	return resp, nil
}

// GetTrades returns up to limit stored trades for symbol, newest first.
// Trades still queued for persistence are not visible yet.
func (s *MarketService) GetTrades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxTradeLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", MaxTradeLimit),
		}
	}
	return s.exchange.Trades(ctx, symbol, limit)
}

// GetStats returns level and order counts for a symbol's book.
func (s *MarketService) GetStats(symbol string) (engine.BookStats, error) {
	stats, ok := s.exchange.Stats(symbol)
	if !ok {
		return engine.BookStats{}, domain.ErrSymbolNotFound
	}
	return stats, nil
}

// ListSymbols returns every symbol with a book, sorted.
func (s *MarketService) ListSymbols() []string {
	return s.exchange.Symbols()
}
