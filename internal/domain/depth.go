package domain

// DepthLevel is the aggregated live quantity resting at one price.
type DepthLevel struct {
	Price      int64
	Quantity   int64
	OrderCount int
}

// Depth is a market-data snapshot of the best price levels of a book.
// Bids are ordered by price descending, asks ascending.
type Depth struct {
	Symbol string
	Bids   []DepthLevel
	Asks   []DepthLevel
}
