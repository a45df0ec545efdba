package engine

import "github.com/efreitasn/matchengine/internal/domain"

// arena owns every order a book has ever accepted, by value. Price levels
// refer to orders through handles, so a fill or cancellation is a single
// write here that every level observes. Orders are never freed: the id
// index must keep answering lookups for filled and cancelled orders.
type arena struct {
	orders []domain.Order
	index  map[string]handle
}

func newArena() arena {
	return arena{index: make(map[string]handle)}
}

func (a *arena) alloc(o domain.Order) handle {
	h := handle(len(a.orders))
	a.orders = append(a.orders, o)
	a.index[o.OrderID] = h
	return h
}

// get returns a pointer into the arena. It is invalidated by the next
// alloc, so callers must not hold it across one.
func (a *arena) get(h handle) *domain.Order {
	return &a.orders[h]
}

func (a *arena) lookup(orderID string) (handle, bool) {
	h, ok := a.index[orderID]
	return h, ok
}

func (a *arena) len() int {
	return len(a.index)
}
