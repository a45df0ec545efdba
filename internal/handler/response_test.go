package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/matchengine/internal/domain"
)

func TestWriteJSON_OrderResponse(t *testing.T) {
	price := int64(150 * domain.FixedScale)
	o := domain.Order{
		OrderID:        "o-1",
		UserID:         "alice",
		Symbol:         "BTCUSD",
		Side:           domain.OrderSideBuy,
		Type:           domain.OrderTypeLimit,
		Price:          price,
		Quantity:       2 * domain.FixedScale,
		FilledQuantity: domain.FixedScale / 2,
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, buildOrderResponse(o))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"order_id":           "o-1",
		"price":              "150",
		"quantity":           "2",
		"filled_quantity":    "0.5",
		"remaining_quantity": "1.5",
		"status":             "partially_filled",
	}
	for k, v := range want {
		if raw[k] != v {
			t.Errorf("%s = %v, want %v", k, raw[k], v)
		}
	}
}

func TestWriteJSON_MarketOrderPriceIsNull(t *testing.T) {
	o := domain.Order{
		OrderID:  "o-2",
		Symbol:   "ETHUSD",
		Side:     domain.OrderSideSell,
		Type:     domain.OrderTypeMarket,
		Quantity: domain.FixedScale,
	}

	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, buildOrderResponse(o))

	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	v, ok := raw["price"]
	if !ok {
		t.Fatal("price key missing")
	}
	if v != nil {
		t.Errorf("price = %v, want null", v)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		message string
	}{
		{"validation", http.StatusBadRequest, "validation_error", "quantity must be greater than zero"},
		{"order not found", http.StatusNotFound, "order_not_found", "Order not found"},
		{"symbol not found", http.StatusNotFound, "symbol_not_found", "Symbol not found"},
		{"internal", http.StatusInternalServerError, "internal_error", "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.status, tt.code, tt.message)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tt.code {
				t.Errorf("error = %q, want %q", resp.Error, tt.code)
			}
			if resp.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Message, tt.message)
			}
		})
	}
}

func TestParseJSON_SubmitOrderRequest(t *testing.T) {
	const valid = `{"user_id":"alice","symbol":"BTCUSD","side":"buy","type":"limit","price":"101.5","quantity":"0.25"}`

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     string
	}{
		{"valid", "application/json", valid, ""},
		{"charset suffix", "application/json; charset=utf-8", valid, ""},
		{"market without price", "application/json", `{"user_id":"bob","symbol":"ETHUSD","side":"sell","type":"market","quantity":"3"}`, ""},
		{"missing content type", "", valid, "Content-Type"},
		{"form content type", "application/x-www-form-urlencoded", valid, "Content-Type"},
		{"malformed", "application/json", `{"user_id":`, "valid JSON"},
		{"unknown field", "application/json", `{"user_id":"alice","leverage":"10"}`, "valid JSON"},
		{"numeric quantity", "application/json", `{"quantity":1}`, "valid JSON"},
		{"two objects", "application/json", valid + valid, "single JSON object"},
		{"empty body", "application/json", "", "valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}

			var req submitOrderRequest
			err := ParseJSON(r, &req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseJSON_DecodesFields(t *testing.T) {
	body := `{"user_id":"alice","symbol":"BTCUSD","side":"buy","type":"limit","price":"101.5","quantity":"0.25"}`
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.UserID != "alice" || req.Symbol != "BTCUSD" || req.Side != "buy" || req.Type != "limit" {
		t.Errorf("decoded = %+v", req)
	}
	if req.Price == nil || *req.Price != "101.5" {
		t.Errorf("price = %v, want 101.5", req.Price)
	}
	if req.Quantity != "0.25" {
		t.Errorf("quantity = %q, want 0.25", req.Quantity)
	}
}
