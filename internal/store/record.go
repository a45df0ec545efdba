package store

import (
	"time"

	"github.com/efreitasn/matchengine/internal/domain"
)

// tradeRecord is the persisted form of a trade. Price and quantity stay
// in fixed-point units so nothing is lost on the way to disk.
type tradeRecord struct {
	TradeID     string    `json:"trade_id"`
	Symbol      string    `json:"symbol"`
	Price       int64     `json:"price"`
	Quantity    int64     `json:"quantity"`
	BuyOrderID  string    `json:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	TakerSide   string    `json:"taker_side"`
	Sequence    uint64    `json:"sequence"`
	ExecutedAt  time.Time `json:"executed_at"`
}

func toRecord(t domain.Trade) tradeRecord {
	return tradeRecord{
		TradeID:     t.TradeID,
		Symbol:      t.Symbol,
		Price:       t.Price,
		Quantity:    t.Quantity,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		BuyerID:     t.BuyerID,
		SellerID:    t.SellerID,
		TakerSide:   string(t.TakerSide),
		Sequence:    t.Sequence,
		ExecutedAt:  t.ExecutedAt,
	}
}

func (r tradeRecord) trade() domain.Trade {
	return domain.Trade{
		TradeID:     r.TradeID,
		Symbol:      r.Symbol,
		Price:       r.Price,
		Quantity:    r.Quantity,
		BuyOrderID:  r.BuyOrderID,
		SellOrderID: r.SellOrderID,
		BuyerID:     r.BuyerID,
		SellerID:    r.SellerID,
		TakerSide:   domain.OrderSide(r.TakerSide),
		Sequence:    r.Sequence,
		ExecutedAt:  r.ExecutedAt.UTC(),
	}
}
