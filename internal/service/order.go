package service

import (
	"fmt"
	"regexp"

	"github.com/efreitasn/matchengine/internal/domain"
	"github.com/efreitasn/matchengine/internal/engine"
)

var (
	userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	symbolRegex = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)
)

// SubmitOrderRequest represents the input for order submission. Price and
// Quantity are fixed-point values (see domain.FixedScale).
type SubmitOrderRequest struct {
	UserID   string
	Symbol   string
	Side     domain.OrderSide
	Type     domain.OrderType
	Price    *int64 // required for limit, must be nil for market
	Quantity int64
}

// SubmitOrderResult is the accepted order and the trades it produced.
type SubmitOrderResult struct {
	Order  domain.Order
	Trades []domain.Trade
}

// OrderService handles order submission, retrieval and cancellation.
type OrderService struct {
	exchange *engine.Exchange
}

// NewOrderService creates a new OrderService over exchange.
func NewOrderService(exchange *engine.Exchange) *OrderService {
	return &OrderService{exchange: exchange}
}

// ValidateSymbol rejects symbols the exchange does not accept.
func ValidateSymbol(symbol string) error {
	if !symbolRegex.MatchString(symbol) {
		return &domain.ValidationError{
			Message: "symbol must match ^[A-Z0-9]{1,16}$",
		}
	}
	return nil
}

// SubmitOrder validates the request and runs it through the symbol's book.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*SubmitOrderResult, error) {
	if !req.Type.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", req.Type),
		}
	}
	if !userIDRegex.MatchString(req.UserID) {
		return nil, &domain.ValidationError{
			Message: "user_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if !req.Side.Valid() {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if err := ValidateSymbol(req.Symbol); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be greater than 0",
		}
	}

	var price int64
	switch req.Type {
	case domain.OrderTypeLimit:
		if req.Price == nil {
			return nil, &domain.ValidationError{
				Message: "price is required for limit orders",
			}
		}
		if *req.Price <= 0 {
			return nil, &domain.ValidationError{
				Message: "price must be greater than 0",
			}
		}
		price = *req.Price
	case domain.OrderTypeMarket:
		if req.Price != nil {
			return nil, &domain.ValidationError{
				Message: "market orders must not include price",
			}
		}
	}

	order, trades, err := s.exchange.SubmitOrder(req.UserID, req.Symbol, req.Side, req.Type, price, req.Quantity)
	if err != nil {
		return nil, err
	}
	return &SubmitOrderResult{Order: order, Trades: trades}, nil
}

// GetOrder returns the current state of an order.
func (s *OrderService) GetOrder(symbol, orderID string) (domain.Order, error) {
	order, ok := s.exchange.Order(symbol, orderID)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// CancelOrder cancels an order and returns its state afterwards. The bool
// reports whether this call cancelled it; false means the order was
// already filled or cancelled.
func (s *OrderService) CancelOrder(symbol, orderID string) (domain.Order, bool, error) {
	if _, ok := s.exchange.Order(symbol, orderID); !ok {
		return domain.Order{}, false, domain.ErrOrderNotFound
	}
	cancelled := s.exchange.CancelOrder(symbol, orderID)
	order, _ := s.exchange.Order(symbol, orderID)
	return order, cancelled, nil
}
