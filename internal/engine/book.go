package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/matchengine/internal/domain"
)

// OrderBook maintains the bid and ask sides for a single symbol. Every
// mutation (submit, cancel, compact) holds the write lock for its whole
// duration; queries share the read lock.
type OrderBook struct {
	symbol   string
	mu       sync.RWMutex
	bids     *levelTree
	asks     *levelTree
	orders   arena
	tradeSeq uint64

	now   func() time.Time
	newID func() string
}

// NewOrderBook creates an empty order book for the given symbol.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newLevelTree(bidLess),
		asks:   newLevelTree(askLess),
		orders: newArena(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Symbol returns the symbol this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// validateOrder rejects malformed orders before any book is touched.
func validateOrder(side domain.OrderSide, typ domain.OrderType, price, quantity int64) error {
	if !side.Valid() {
		return &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if !typ.Valid() {
		return &domain.ValidationError{Message: "type must be 'limit' or 'market'"}
	}
	if quantity <= 0 {
		return &domain.ValidationError{Message: "quantity must be greater than 0"}
	}
	if typ == domain.OrderTypeLimit && price <= 0 {
		return &domain.ValidationError{Message: "price must be greater than 0 for limit orders"}
	}
	return nil
}

// SubmitOrder accepts a new order, matches it against the opposite side and
// rests any unfilled limit remainder at the back of its price level. The
// unfilled remainder of a market order is dropped; market orders never rest.
//
// It returns a snapshot of the order after matching and the trades generated,
// in generation order.
func (ob *OrderBook) SubmitOrder(
	userID string,
	side domain.OrderSide,
	typ domain.OrderType,
	price int64,
	quantity int64,
) (domain.Order, []domain.Trade, error) {
	if err := validateOrder(side, typ, price, quantity); err != nil {
		return domain.Order{}, nil, err
	}
	if typ == domain.OrderTypeMarket {
		price = 0
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	now := ob.now()
	h := ob.orders.alloc(domain.Order{
		OrderID:   ob.newID(),
		UserID:    userID,
		Symbol:    ob.symbol,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: now,
	})

	trades := ob.match(h, now)

	order := ob.orders.get(h)
	if order.Type == domain.OrderTypeLimit && order.Live() {
		ob.side(order.Side).level(order.Price).push(h)
	}
	return *order, trades, nil
}

// side returns the level tree orders of side s rest on.
func (ob *OrderBook) side(s domain.OrderSide) *levelTree {
	if s == domain.OrderSideBuy {
		return ob.bids
	}
	return ob.asks
}

// match runs the incoming order against the opposite side, best level
// first, FIFO within a level. Dead handles at the front of a level are
// discarded as they are reached. The caller holds the write lock.
func (ob *OrderBook) match(h handle, now time.Time) []domain.Trade {
	incoming := ob.orders.get(h)
	opposite := ob.side(incoming.Side.Opposite())

	var trades []domain.Trade
	for incoming.Live() {
		level, ok := opposite.best()
		if !ok {
			break
		}

		rh, ok := level.front()
		if !ok {
			opposite.remove(level.price)
			continue
		}
		resting := ob.orders.get(rh)
		if !resting.Live() {
			level.pop()
			if level.len() == 0 {
				opposite.remove(level.price)
			}
			continue
		}

		// The best level failed the limit, so every worse level fails too.
		if !crosses(incoming, resting.Price) {
			break
		}

		qty := min(incoming.Remaining(), resting.Remaining())
		incoming.FilledQuantity += qty
		resting.FilledQuantity += qty
		trades = append(trades, ob.newTrade(incoming, resting, qty, now))

		if resting.Remaining() == 0 {
			level.pop()
			if level.len() == 0 {
				opposite.remove(level.price)
			}
		}
	}
	return trades
}

// crosses reports whether the incoming order accepts a resting price.
func crosses(incoming *domain.Order, restingPrice int64) bool {
	if incoming.Type == domain.OrderTypeMarket {
		return true
	}
	if incoming.Side == domain.OrderSideBuy {
		return incoming.Price >= restingPrice
	}
	return incoming.Price <= restingPrice
}

func (ob *OrderBook) newTrade(taker, maker *domain.Order, qty int64, now time.Time) domain.Trade {
	ob.tradeSeq++
	t := domain.Trade{
		TradeID:    ob.newID(),
		Symbol:     ob.symbol,
		Price:      maker.Price,
		Quantity:   qty,
		TakerSide:  taker.Side,
		Sequence:   ob.tradeSeq,
		ExecutedAt: now,
	}
	buy, sell := taker, maker
	if taker.Side == domain.OrderSideSell {
		buy, sell = maker, taker
	}
	t.BuyOrderID, t.BuyerID = buy.OrderID, buy.UserID
	t.SellOrderID, t.SellerID = sell.OrderID, sell.UserID
	return t
}

// CancelOrder flags a live order as cancelled. It returns false when the
// order is unknown, already cancelled or already fully filled. The order's
// handle stays in its price level and is skipped by later scans.
func (ob *OrderBook) CancelOrder(orderID string) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	h, ok := ob.orders.lookup(orderID)
	if !ok {
		return false
	}
	o := ob.orders.get(h)
	if !o.Live() {
		return false
	}
	o.Cancelled = true
	return true
}

// Order returns a snapshot of the order with the given id.
func (ob *OrderBook) Order(orderID string) (domain.Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	h, ok := ob.orders.lookup(orderID)
	if !ok {
		return domain.Order{}, false
	}
	return *ob.orders.get(h), true
}

// Depth aggregates live quantity for up to limit non-empty levels per side.
// Cancelled and filled orders still queued in a level contribute nothing.
func (ob *OrderBook) Depth(limit int) domain.Depth {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return domain.Depth{
		Symbol: ob.symbol,
		Bids:   ob.topLevels(ob.bids, limit),
		Asks:   ob.topLevels(ob.asks, limit),
	}
}

func (ob *OrderBook) topLevels(side *levelTree, limit int) []domain.DepthLevel {
	levels := make([]domain.DepthLevel, 0)
	if limit <= 0 {
		return levels
	}
	side.walk(func(l *priceLevel) bool {
		dl := domain.DepthLevel{Price: l.price}
		l.each(func(h handle) {
			o := ob.orders.get(h)
			if o.Live() {
				dl.Quantity += o.Remaining()
				dl.OrderCount++
			}
		})
		if dl.Quantity > 0 {
			levels = append(levels, dl)
		}
		return len(levels) < limit
	})
	return levels
}

// BidCount returns the number of bid price levels.
func (ob *OrderBook) BidCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bids.len()
}

// AskCount returns the number of ask price levels.
func (ob *OrderBook) AskCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.asks.len()
}

// TotalOrderCount returns the number of orders ever accepted by the book,
// including filled and cancelled ones.
func (ob *OrderBook) TotalOrderCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.orders.len()
}

// Compact drops dead handles from every level and removes levels left
// empty. It returns the number of handles pruned.
func (ob *OrderBook) Compact() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	live := func(h handle) bool { return ob.orders.get(h).Live() }
	pruned := 0
	for _, side := range []*levelTree{ob.bids, ob.asks} {
		var empty []int64
		side.walk(func(l *priceLevel) bool {
			pruned += l.retain(live)
			if l.len() == 0 {
				empty = append(empty, l.price)
			}
			return true
		})
		for _, price := range empty {
			side.remove(price)
		}
	}
	return pruned
}
