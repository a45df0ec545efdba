package engine

import (
	"fmt"
	"testing"

	"github.com/efreitasn/matchengine/internal/domain"
	"pgregory.net/rapid"
)

// snapshotAll refreshes every known order from the book.
func snapshotAll(t *rapid.T, ob *OrderBook, ids []string) map[string]domain.Order {
	out := make(map[string]domain.Order, len(ids))
	for _, id := range ids {
		o, ok := ob.Order(id)
		if !ok {
			t.Fatalf("order %s disappeared from the index", id)
		}
		out[id] = o
	}
	return out
}

// checkTrades verifies the maker price rule, conservation and price
// priority for the trades generated by one submission.
func checkTrades(t *rapid.T, taker domain.Order, trades []domain.Trade, before, after map[string]domain.Order) {
	remTaker := taker.Quantity
	makerFills := make(map[string]int64)
	var takerFilled int64

	for i, tr := range trades {
		makerID := tr.SellOrderID
		if taker.Side == domain.OrderSideSell {
			makerID = tr.BuyOrderID
		}
		maker, ok := before[makerID]
		if !ok {
			t.Fatalf("trade %d references unknown maker %s", i, makerID)
		}
		if maker.Cancelled {
			t.Fatalf("trade %d matched cancelled order %s", i, makerID)
		}
		if tr.Price != maker.Price {
			t.Fatalf("trade %d price %d != maker price %d", i, tr.Price, maker.Price)
		}

		remMaker := maker.Remaining() - makerFills[makerID]
		if want := min(remTaker, remMaker); tr.Quantity != want {
			t.Fatalf("trade %d quantity %d != min(%d, %d)", i, tr.Quantity, remTaker, remMaker)
		}
		remTaker -= tr.Quantity
		makerFills[makerID] += tr.Quantity
		takerFilled += tr.Quantity

		if taker.Type == domain.OrderTypeLimit {
			if taker.Side == domain.OrderSideBuy && tr.Price > taker.Price {
				t.Fatalf("buy limit %d traded at %d", taker.Price, tr.Price)
			}
			if taker.Side == domain.OrderSideSell && tr.Price < taker.Price {
				t.Fatalf("sell limit %d traded at %d", taker.Price, tr.Price)
			}
		}
		if i > 0 {
			prev := trades[i-1].Price
			if taker.Side == domain.OrderSideBuy && tr.Price < prev {
				t.Fatalf("asks matched out of price order: %d after %d", tr.Price, prev)
			}
			if taker.Side == domain.OrderSideSell && tr.Price > prev {
				t.Fatalf("bids matched out of price order: %d after %d", tr.Price, prev)
			}
		}
	}

	if taker.FilledQuantity != takerFilled {
		t.Fatalf("taker filled %d, trades sum to %d", taker.FilledQuantity, takerFilled)
	}
	for id, o := range after {
		prev, existed := before[id]
		if !existed {
			continue
		}
		if got, want := o.FilledQuantity-prev.FilledQuantity, makerFills[id]; got != want {
			t.Fatalf("order %s filled grew by %d, trades account for %d", id, got, want)
		}
	}
}

// checkDepth verifies that depth equals the live remainder of resting limit
// orders and that the book is not crossed.
func checkDepth(t *rapid.T, ob *OrderBook, orders map[string]domain.Order) {
	var liveBids, liveAsks int64
	for _, o := range orders {
		if o.Type != domain.OrderTypeLimit || !o.Live() {
			continue
		}
		if o.Side == domain.OrderSideBuy {
			liveBids += o.Remaining()
		} else {
			liveAsks += o.Remaining()
		}
	}

	d := ob.Depth(1 << 20)
	var depthBids, depthAsks int64
	for _, l := range d.Bids {
		depthBids += l.Quantity
	}
	for _, l := range d.Asks {
		depthAsks += l.Quantity
	}
	if depthBids != liveBids || depthAsks != liveAsks {
		t.Fatalf("depth bids/asks %d/%d, live remainder %d/%d", depthBids, depthAsks, liveBids, liveAsks)
	}
	if len(d.Bids) > 0 && len(d.Asks) > 0 && d.Bids[0].Price >= d.Asks[0].Price {
		t.Fatalf("book crossed: best bid %d >= best ask %d", d.Bids[0].Price, d.Asks[0].Price)
	}
}

func TestProperty_MatchingInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook("TEST")
		var ids []string
		orders := map[string]domain.Order{}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(ids) > 0 && rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("op-%d", i)) == 0 {
				id := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("cancel-%d", i))
				before := orders[id]
				ok := ob.CancelOrder(id)
				if ok != before.Live() {
					t.Fatalf("CancelOrder(%s) = %v, order live = %v", id, ok, before.Live())
				}
				orders = snapshotAll(t, ob, ids)
				checkDepth(t, ob, orders)
				continue
			}

			side := rapid.SampledFrom([]domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell}).Draw(t, fmt.Sprintf("side-%d", i))
			typ := domain.OrderTypeLimit
			if rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("market-%d", i)) == 0 {
				typ = domain.OrderTypeMarket
			}
			price := rapid.Int64Range(95, 105).Draw(t, fmt.Sprintf("price-%d", i)) * unit
			qty := rapid.Int64Range(1, 10).Draw(t, fmt.Sprintf("qty-%d", i)) * unit / 2

			before := orders
			taker, trades, err := ob.SubmitOrder("u", side, typ, price, qty)
			if err != nil {
				t.Fatalf("SubmitOrder: %v", err)
			}
			ids = append(ids, taker.OrderID)
			orders = snapshotAll(t, ob, ids)

			checkTrades(t, taker, trades, before, orders)
			for id, o := range orders {
				if o.FilledQuantity < 0 || o.FilledQuantity > o.Quantity {
					t.Fatalf("order %s violates 0 <= filled <= quantity: %d/%d", id, o.FilledQuantity, o.Quantity)
				}
				if prev, ok := before[id]; ok && prev.Cancelled && o.FilledQuantity != prev.FilledQuantity {
					t.Fatalf("cancelled order %s gained fills", id)
				}
			}
			checkDepth(t, ob, orders)
		}

		if ob.TotalOrderCount() != len(ids) {
			t.Fatalf("TotalOrderCount() = %d, want %d", ob.TotalOrderCount(), len(ids))
		}
	})
}

func TestProperty_CompactPreservesDepth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook("TEST")
		var ids []string
		n := rapid.IntRange(1, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			side := rapid.SampledFrom([]domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell}).Draw(t, fmt.Sprintf("side-%d", i))
			price := rapid.Int64Range(90, 110).Draw(t, fmt.Sprintf("price-%d", i)) * unit
			o, _, err := ob.SubmitOrder("u", side, domain.OrderTypeLimit, price, unit)
			if err != nil {
				t.Fatalf("SubmitOrder: %v", err)
			}
			ids = append(ids, o.OrderID)
		}
		for i, id := range ids {
			if rapid.Bool().Draw(t, fmt.Sprintf("cancel-%d", i)) {
				ob.CancelOrder(id)
			}
		}

		before := ob.Depth(1 << 20)
		ob.Compact()
		after := ob.Depth(1 << 20)

		if fmt.Sprint(before) != fmt.Sprint(after) {
			t.Fatalf("depth changed by compaction:\nbefore %+v\nafter  %+v", before, after)
		}
		if ob.BidCount() != len(after.Bids) || ob.AskCount() != len(after.Asks) {
			t.Fatalf("level counts %d/%d after compaction, depth has %d/%d",
				ob.BidCount(), ob.AskCount(), len(after.Bids), len(after.Asks))
		}
	})
}
