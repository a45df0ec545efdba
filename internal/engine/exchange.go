package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/efreitasn/matchengine/internal/domain"
)

// TradeSink receives trades produced by matching and serves trade history.
// AddTrades must not block on storage.
type TradeSink interface {
	AddTrades(trades []domain.Trade)
	Trades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error)
	Shutdown(ctx context.Context) error
}

// BookStats summarizes the size of one book.
type BookStats struct {
	Symbol      string
	BidLevels   int
	AskLevels   int
	TotalOrders int
}

// Exchange routes requests to per-symbol order books, creating books on
// first use. Lookups of existing books share the registry read lock; only
// book creation takes the write lock, and neither is held while matching.
type Exchange struct {
	mu     sync.RWMutex
	books  map[string]*OrderBook
	sink   TradeSink
	logger *slog.Logger
}

// NewExchange creates an Exchange that hands trades to sink.
func NewExchange(sink TradeSink, logger *slog.Logger) *Exchange {
	return &Exchange{
		books:  make(map[string]*OrderBook),
		sink:   sink,
		logger: logger,
	}
}

// book returns the order book for symbol if one exists.
func (e *Exchange) book(symbol string) (*OrderBook, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.books[symbol]
	return b, ok
}

// getOrCreate returns the order book for the given symbol, creating one if
// it doesn't already exist.
func (e *Exchange) getOrCreate(symbol string) *OrderBook {
	e.mu.RLock()
	b, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Double-check after acquiring write lock.
	if b, ok = e.books[symbol]; ok {
		return b
	}
	b = NewOrderBook(symbol)
	e.books[symbol] = b
	e.logger.Debug("order book created", slog.String("symbol", symbol))
	return b
}

// SubmitOrder validates the order, matches it in the symbol's book and
// queues any resulting trades for persistence before returning.
func (e *Exchange) SubmitOrder(
	userID string,
	symbol string,
	side domain.OrderSide,
	typ domain.OrderType,
	price int64,
	quantity int64,
) (domain.Order, []domain.Trade, error) {
	if symbol == "" {
		return domain.Order{}, nil, &domain.ValidationError{Message: "symbol is required"}
	}
	// Reject before creating a book for a symbol nobody can trade.
	if err := validateOrder(side, typ, price, quantity); err != nil {
		return domain.Order{}, nil, err
	}

	order, trades, err := e.getOrCreate(symbol).SubmitOrder(userID, side, typ, price, quantity)
	if err != nil {
		return domain.Order{}, nil, err
	}
	if len(trades) > 0 && e.sink != nil {
		e.sink.AddTrades(trades)
	}
	return order, trades, nil
}

// CancelOrder cancels an order in the symbol's book. It returns false for
// an unknown symbol or when the book refuses the cancellation.
func (e *Exchange) CancelOrder(symbol, orderID string) bool {
	b, ok := e.book(symbol)
	if !ok {
		return false
	}
	return b.CancelOrder(orderID)
}

// Order returns a snapshot of an order.
func (e *Exchange) Order(symbol, orderID string) (domain.Order, bool) {
	b, ok := e.book(symbol)
	if !ok {
		return domain.Order{}, false
	}
	return b.Order(orderID)
}

// Depth returns the aggregated depth of a symbol. Unknown symbols yield
// empty sides and ok == false.
func (e *Exchange) Depth(symbol string, limit int) (domain.Depth, bool) {
	b, ok := e.book(symbol)
	if !ok {
		return domain.Depth{
			Symbol: symbol,
			Bids:   []domain.DepthLevel{},
			Asks:   []domain.DepthLevel{},
		}, false
	}
	return b.Depth(limit), true
}

// Trades returns persisted trade history for a symbol, newest first.
func (e *Exchange) Trades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	if e.sink == nil {
		return []domain.Trade{}, nil
	}
	return e.sink.Trades(ctx, symbol, limit)
}

// Symbols returns every symbol with a book, sorted.
func (e *Exchange) Symbols() []string {
	e.mu.RLock()
	symbols := make([]string, 0, len(e.books))
	for s := range e.books {
		symbols = append(symbols, s)
	}
	e.mu.RUnlock()

	sort.Strings(symbols)
	return symbols
}

// Stats reports the level and order counts of a symbol's book.
func (e *Exchange) Stats(symbol string) (BookStats, bool) {
	b, ok := e.book(symbol)
	if !ok {
		return BookStats{Symbol: symbol}, false
	}
	return BookStats{
		Symbol:      symbol,
		BidLevels:   b.BidCount(),
		AskLevels:   b.AskCount(),
		TotalOrders: b.TotalOrderCount(),
	}, true
}

// Books returns a snapshot of the registered books.
func (e *Exchange) Books() []*OrderBook {
	e.mu.RLock()
	defer e.mu.RUnlock()

	books := make([]*OrderBook, 0, len(e.books))
	for _, b := range e.books {
		books = append(books, b)
	}
	return books
}

// Shutdown drains the trade sink and drops every book. Live orders are not
// persisted; a restarted exchange starts with empty books.
func (e *Exchange) Shutdown(ctx context.Context) error {
	var err error
	if e.sink != nil {
		err = e.sink.Shutdown(ctx)
	}

	e.mu.Lock()
	e.books = make(map[string]*OrderBook)
	e.mu.Unlock()

	return err
}
