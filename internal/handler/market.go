package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/matchengine/internal/domain"
	"github.com/efreitasn/matchengine/internal/service"
)

// MarketHandler handles HTTP requests for market data endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
	logger    *slog.Logger
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc, logger: logger}
}

type depthLevelResponse struct {
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	OrderCount int    `json:"order_count"`
}

type depthResponse struct {
	Symbol     string               `json:"symbol"`
	Bids       []depthLevelResponse `json:"bids"`
	Asks       []depthLevelResponse `json:"asks"`
	Spread     *string              `json:"spread"`
	SnapshotAt string               `json:"snapshot_at"`
}

type statsResponse struct {
	Symbol      string `json:"symbol"`
	BidLevels   int    `json:"bid_levels"`
	AskLevels   int    `json:"ask_levels"`
	TotalOrders int    `json:"total_orders"`
}

// ListSymbols handles GET /symbols.
func (h *MarketHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]string{"symbols": h.marketSvc.ListSymbols()})
}

// GetDepth handles GET /symbols/{symbol}/depth.
func (h *MarketHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, service.DefaultDepthLimit)
	if err != nil {
		mapError(w, err)
		return
	}

	depth, err := h.marketSvc.GetDepth(chi.URLParam(r, "symbol"), limit)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := depthResponse{
		Symbol:     depth.Symbol,
		Bids:       buildDepthLevels(depth.Bids),
		Asks:       buildDepthLevels(depth.Asks),
		SnapshotAt: depth.SnapshotAt.UTC().Format(time.RFC3339Nano),
	}
	if depth.Spread != nil {
		s := domain.FormatFixed(*depth.Spread)
		resp.Spread = &s
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetTrades handles GET /symbols/{symbol}/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, service.DefaultTradeLimit)
	if err != nil {
		mapError(w, err)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	trades, err := h.marketSvc.GetTrades(r.Context(), symbol, limit)
	if err != nil {
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			h.logger.Error("reading trade history",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"trades": buildTradeResponses(trades),
	})
}

// GetStats handles GET /symbols/{symbol}/stats.
func (h *MarketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.marketSvc.GetStats(chi.URLParam(r, "symbol"))
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, statsResponse{
		Symbol:      stats.Symbol,
		BidLevels:   stats.BidLevels,
		AskLevels:   stats.AskLevels,
		TotalOrders: stats.TotalOrders,
	})
}

func buildDepthLevels(levels []domain.DepthLevel) []depthLevelResponse {
	result := make([]depthLevelResponse, len(levels))
	for i, l := range levels {
		result[i] = depthLevelResponse{
			Price:      domain.FormatFixed(l.Price),
			Quantity:   domain.FormatFixed(l.Quantity),
			OrderCount: l.OrderCount,
		}
	}
	return result
}

// parseLimit reads the optional limit query parameter.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Message: "limit must be an integer"}
	}
	return n, nil
}
