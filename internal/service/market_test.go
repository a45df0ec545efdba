package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/efreitasn/matchengine/internal/domain"
)

func TestGetDepth(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, limitReq("a", domain.OrderSideBuy, 99*unit, unit))
	env.submit(t, limitReq("b", domain.OrderSideBuy, 99*unit, 2*unit))
	env.submit(t, limitReq("c", domain.OrderSideBuy, 98*unit, unit))
	env.submit(t, limitReq("d", domain.OrderSideSell, 101*unit, unit))

	resp, err := env.market.GetDepth("ETHUSD", 1)
	if err != nil {
		t.Fatalf("GetDepth: %v", err)
	}
	if len(resp.Bids) != 1 || len(resp.Asks) != 1 {
		t.Fatalf("bids=%d asks=%d, want 1/1", len(resp.Bids), len(resp.Asks))
	}
	if resp.Bids[0].Price != 99*unit || resp.Bids[0].Quantity != 3*unit || resp.Bids[0].OrderCount != 2 {
		t.Errorf("best bid = %+v", resp.Bids[0])
	}
	if resp.Spread == nil || *resp.Spread != 2*unit {
		t.Errorf("spread = %v, want %d", resp.Spread, 2*unit)
	}
}

func TestGetDepth_OneSidedHasNoSpread(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, limitReq("a", domain.OrderSideBuy, 99*unit, unit))

	resp, err := env.market.GetDepth("ETHUSD", DefaultDepthLimit)
	if err != nil {
		t.Fatalf("GetDepth: %v", err)
	}
	if resp.Spread != nil {
		t.Errorf("spread = %d, want nil", *resp.Spread)
	}
}

func TestGetDepth_UnknownSymbolIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.market.GetDepth("NOPE", DefaultDepthLimit)
	if err != nil {
		t.Fatalf("GetDepth: %v", err)
	}
	if resp.Bids == nil || resp.Asks == nil || len(resp.Bids)+len(resp.Asks) != 0 {
		t.Errorf("expected empty non-nil sides, got %+v", resp.Depth)
	}
}

func TestGetDepth_LimitValidation(t *testing.T) {
	env := newTestEnv(t)
	for _, limit := range []int{0, -1, MaxDepthLimit + 1} {
		_, err := env.market.GetDepth("ETHUSD", limit)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("limit %d: expected ValidationError, got %v", limit, err)
		}
	}
}

func TestGetTrades(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, limitReq("a", domain.OrderSideSell, 100*unit, unit))
	env.submit(t, limitReq("b", domain.OrderSideSell, 101*unit, unit))
	env.submit(t, limitReq("c", domain.OrderSideBuy, 101*unit, 2*unit))

	var trades []domain.Trade
	deadline := time.Now().Add(time.Second)
	for len(trades) < 2 && time.Now().Before(deadline) {
		var err error
		trades, err = env.market.GetTrades(context.Background(), "ETHUSD", 10)
		if err != nil {
			t.Fatalf("GetTrades: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	// Newest first: the 101 fill came second.
	if trades[0].Price != 101*unit || trades[1].Price != 100*unit {
		t.Errorf("prices = %d, %d; want newest first", trades[0].Price, trades[1].Price)
	}
}

func TestGetTrades_Validation(t *testing.T) {
	env := newTestEnv(t)
	var ve *domain.ValidationError

	if _, err := env.market.GetTrades(context.Background(), "ETHUSD", 0); !errors.As(err, &ve) {
		t.Errorf("limit 0: expected ValidationError, got %v", err)
	}
	if _, err := env.market.GetTrades(context.Background(), "ETHUSD", MaxTradeLimit+1); !errors.As(err, &ve) {
		t.Errorf("limit too big: expected ValidationError, got %v", err)
	}
	if _, err := env.market.GetTrades(context.Background(), "eth", 10); !errors.As(err, &ve) {
		t.Errorf("bad symbol: expected ValidationError, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, limitReq("a", domain.OrderSideBuy, 99*unit, unit))
	env.submit(t, limitReq("b", domain.OrderSideSell, 101*unit, unit))
	env.submit(t, limitReq("c", domain.OrderSideSell, 102*unit, unit))

	stats, err := env.market.GetStats("ETHUSD")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.BidLevels != 1 || stats.AskLevels != 2 || stats.TotalOrders != 3 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := env.market.GetStats("NOPE"); !errors.Is(err, domain.ErrSymbolNotFound) {
		t.Errorf("unknown symbol error = %v, want ErrSymbolNotFound", err)
	}
}

func TestListSymbols(t *testing.T) {
	env := newTestEnv(t)
	req := limitReq("a", domain.OrderSideBuy, unit, unit)
	req.Symbol = "BTCUSD"
	env.submit(t, req)
	env.submit(t, limitReq("a", domain.OrderSideBuy, unit, unit))

	got := env.market.ListSymbols()
	if len(got) != 2 || got[0] != "BTCUSD" || got[1] != "ETHUSD" {
		t.Errorf("ListSymbols() = %v", got)
	}
}
