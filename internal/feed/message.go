// Package feed publishes stored trades to downstream consumers: a Kafka
// topic, an HTTP webhook and live WebSocket subscribers.
package feed

import (
	"time"

	"github.com/efreitasn/matchengine/internal/domain"
)

// TradeMessage is the wire form of a trade. Price and quantity are decimal
// strings so consumers never see float rounding.
type TradeMessage struct {
	TradeID     string `json:"trade_id"`
	Symbol      string `json:"symbol"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
	BuyerID     string `json:"buyer_id"`
	SellerID    string `json:"seller_id"`
	TakerSide   string `json:"taker_side"`
	Sequence    uint64 `json:"sequence"`
	ExecutedAt  string `json:"executed_at"`
}

// NewTradeMessage converts a trade to its wire form.
func NewTradeMessage(t domain.Trade) TradeMessage {
	return TradeMessage{
		TradeID:     t.TradeID,
		Symbol:      t.Symbol,
		Price:       domain.FormatFixed(t.Price),
		Quantity:    domain.FormatFixed(t.Quantity),
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		BuyerID:     t.BuyerID,
		SellerID:    t.SellerID,
		TakerSide:   string(t.TakerSide),
		Sequence:    t.Sequence,
		ExecutedAt:  t.ExecutedAt.UTC().Format(time.RFC3339Nano),
	}
}
