package domain

import "time"

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == OrderTypeLimit || t == OrderTypeMarket
}

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Opposite returns the side an order of side s matches against.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Order is a request to trade one symbol. Price, Quantity and
// FilledQuantity are fixed-point integers scaled by FixedScale.
type Order struct {
	OrderID        string
	UserID         string
	Symbol         string
	Side           OrderSide
	Type           OrderType
	Price          int64 // 0 for market orders
	Quantity       int64
	FilledQuantity int64
	Cancelled      bool
	CreatedAt      time.Time
}

// Remaining returns the quantity still open for matching.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.FilledQuantity
}

// Live reports whether the order can still trade: not cancelled and not
// fully filled. Price levels may hold orders that are no longer live.
func (o *Order) Live() bool {
	return !o.Cancelled && o.Remaining() > 0
}

// Status derives the lifecycle state from the fill and cancellation fields.
// A cancelled order reports cancelled even when it was partially filled.
func (o *Order) Status() OrderStatus {
	switch {
	case o.Cancelled:
		return OrderStatusCancelled
	case o.Remaining() == 0:
		return OrderStatusFilled
	case o.FilledQuantity > 0:
		return OrderStatusPartiallyFilled
	default:
		return OrderStatusPending
	}
}
