package feed

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/matchengine/internal/domain"
)

const (
	subscriberBuffer = 64
	writeWait        = 5 * time.Second
)

// streamMessage is one frame on the trade stream.
type streamMessage struct {
	Type string       `json:"type"`
	Data TradeMessage `json:"data"`
}

type subscription struct {
	symbol string // empty receives every symbol
	ch     chan TradeMessage
}

// Hub fans stored trades out to WebSocket subscribers. A subscriber that
// falls behind loses messages instead of slowing the publisher.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscription]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:     make(map[*subscription]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
	}
}

func (h *Hub) subscribe(symbol string) *subscription {
	sub := &subscription{symbol: symbol, ch: make(chan TradeMessage, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish broadcasts trades to matching subscribers without blocking.
func (h *Hub) Publish(_ context.Context, trades []domain.Trade) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, t := range trades {
		msg := NewTradeMessage(t)
		for sub := range h.subs {
			if sub.symbol != "" && sub.symbol != t.Symbol {
				continue
			}
			select {
			case sub.ch <- msg:
			default:
			}
		}
	}
	return nil
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams trades until
// the client goes away. The optional symbol query parameter filters the
// stream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := h.subscribe(r.URL.Query().Get("symbol"))
	defer h.unsubscribe(sub)

	// The read side only exists to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-sub.ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamMessage{Type: "trade", Data: msg}); err != nil {
				return
			}
		}
	}
}
