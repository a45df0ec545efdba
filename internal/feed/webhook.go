package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/matchengine/internal/domain"
)

// TradesPersistedEvent is the event type sent to the trade webhook.
const TradesPersistedEvent = "trades.persisted"

// webhookPayload is the JSON body POSTed for every stored batch.
type webhookPayload struct {
	Event     string        `json:"event"`
	Timestamp string        `json:"timestamp"`
	Data      webhookTrades `json:"data"`
}

type webhookTrades struct {
	Trades []TradeMessage `json:"trades"`
}

// WebhookPublisher POSTs each stored batch to a fixed URL.
type WebhookPublisher struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhookPublisher creates a publisher for url with the given request
// timeout.
func NewWebhookPublisher(url string, timeout time.Duration) *WebhookPublisher {
	return &WebhookPublisher{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// Publish delivers trades in one request. A non-2xx response is an error.
func (p *WebhookPublisher) Publish(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	msgs := make([]TradeMessage, len(trades))
	for i, t := range trades {
		msgs[i] = NewTradeMessage(t)
	}
	body, err := json.Marshal(webhookPayload{
		Event:     TradesPersistedEvent,
		Timestamp: p.now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      webhookTrades{Trades: msgs},
	})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Event-Type", TradesPersistedEvent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
