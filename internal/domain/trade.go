package domain

import "time"

// Trade is an immutable record of one match between a resting (maker)
// order and an incoming (taker) order. Price is always the maker's price.
type Trade struct {
	TradeID     string
	Symbol      string
	Price       int64
	Quantity    int64
	BuyOrderID  string
	SellOrderID string
	BuyerID     string
	SellerID    string
	TakerSide   OrderSide
	Sequence    uint64 // per-symbol, increasing in generation order
	ExecutedAt  time.Time
}
