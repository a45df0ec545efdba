package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/matchengine/internal/domain"
	"github.com/efreitasn/matchengine/internal/feed"
	"github.com/efreitasn/matchengine/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders. Price and
// quantity are decimal strings.
type submitOrderRequest struct {
	UserID   string  `json:"user_id" validate:"required,max=64"`
	Symbol   string  `json:"symbol" validate:"required,max=16"`
	Side     string  `json:"side" validate:"required,oneof=buy sell"`
	Type     string  `json:"type" validate:"required,oneof=limit market"`
	Price    *string `json:"price" validate:"omitempty,numeric"`
	Quantity string  `json:"quantity" validate:"required,numeric"`
}

// orderResponse is the JSON form of an order.
type orderResponse struct {
	OrderID           string  `json:"order_id"`
	UserID            string  `json:"user_id"`
	Symbol            string  `json:"symbol"`
	Side              string  `json:"side"`
	Type              string  `json:"type"`
	Price             *string `json:"price"` // null for market orders
	Quantity          string  `json:"quantity"`
	FilledQuantity    string  `json:"filled_quantity"`
	RemainingQuantity string  `json:"remaining_quantity"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
}

type submitOrderResponse struct {
	Order  orderResponse       `json:"order"`
	Trades []feed.TradeMessage `json:"trades"`
}

type cancelOrderResponse struct {
	Cancelled bool          `json:"cancelled"`
	Order     orderResponse `json:"order"`
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := validateRequest(req); err != nil {
		mapError(w, err)
		return
	}

	quantity, err := parseFixed("quantity", req.Quantity)
	if err != nil {
		mapError(w, err)
		return
	}
	var price *int64
	if req.Price != nil {
		p, err := parseFixed("price", *req.Price)
		if err != nil {
			mapError(w, err)
			return
		}
		price = &p
	}

	res, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		UserID:   req.UserID,
		Symbol:   req.Symbol,
		Side:     domain.OrderSide(req.Side),
		Type:     domain.OrderType(req.Type),
		Price:    price,
		Quantity: quantity,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, submitOrderResponse{
		Order:  buildOrderResponse(res.Order),
		Trades: buildTradeResponses(res.Trades),
	})
}

// GetOrder handles GET /symbols/{symbol}/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(chi.URLParam(r, "symbol"), chi.URLParam(r, "order_id"))
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /symbols/{symbol}/orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, cancelled, err := h.orderSvc.CancelOrder(chi.URLParam(r, "symbol"), chi.URLParam(r, "order_id"))
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, cancelOrderResponse{
		Cancelled: cancelled,
		Order:     buildOrderResponse(order),
	})
}

func buildOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:           o.OrderID,
		UserID:            o.UserID,
		Symbol:            o.Symbol,
		Side:              string(o.Side),
		Type:              string(o.Type),
		Quantity:          domain.FormatFixed(o.Quantity),
		FilledQuantity:    domain.FormatFixed(o.FilledQuantity),
		RemainingQuantity: domain.FormatFixed(o.Remaining()),
		Status:            string(o.Status()),
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if o.Type == domain.OrderTypeLimit {
		p := domain.FormatFixed(o.Price)
		resp.Price = &p
	}
	return resp
}

func buildTradeResponses(trades []domain.Trade) []feed.TradeMessage {
	result := make([]feed.TradeMessage, len(trades))
	for i, t := range trades {
		result[i] = feed.NewTradeMessage(t)
	}
	return result
}

// mapError maps domain errors to HTTP responses.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", "Order not found")
	case errors.Is(err, domain.ErrSymbolNotFound):
		WriteError(w, http.StatusNotFound, "symbol_not_found", "Symbol not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
