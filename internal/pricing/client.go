package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/service"
)

// Client calls the external tax/shipping service. A circuit breaker keeps
// checkout from piling requests onto a pricing outage.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*quoteResponse]
}

type quoteRequest struct {
	Subtotal       string `json:"subtotal"`
	Currency       string `json:"currency"`
	CountryCode    string `json:"country_code"`
	ShippingMethod string `json:"shipping_method,omitempty"`
	ItemCount      int    `json:"item_count"`
}

type quoteResponse struct {
	Tax          string `json:"tax"`
	ShippingCost string `json:"shipping_cost"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "pricing",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*quoteResponse](settings),
	}
}

func (c *Client) Quote(ctx context.Context, req service.PricingRequest) (*service.PricingQuote, error) {
	body, err := json.Marshal(quoteRequest{
		Subtotal:       req.Subtotal.Amount.String(),
		Currency:       req.Subtotal.Currency,
		CountryCode:    req.CountryCode,
		ShippingMethod: req.ShippingMethod,
		ItemCount:      req.ItemCount,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal quote request: %w", err)
	}

	resp, err := c.breaker.Execute(func() (*quoteResponse, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	tax, err := domain.NewMoneyFromString(resp.Tax, req.Subtotal.Currency)
	if err != nil {
		return nil, fmt.Errorf("invalid tax in quote: %w", err)
	}
	shipping, err := domain.NewMoneyFromString(resp.ShippingCost, req.Subtotal.Currency)
	if err != nil {
		return nil, fmt.Errorf("invalid shipping cost in quote: %w", err)
	}

	return &service.PricingQuote{Tax: tax, ShippingCost: shipping}, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*quoteResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quote", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pricing service request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing service returned status %d", httpResp.StatusCode)
	}

	var resp quoteResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	return &resp, nil
}
