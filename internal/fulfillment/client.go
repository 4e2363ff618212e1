// Package fulfillment talks to the manufacturing partner: submitting
// confirmed orders to its HTTP API and validating its status webhooks.
package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaypressapp/relaypress/internal/observability"
)

// submitTimeout bounds the order forward. A timed-out call is a failure; the
// order stays at its last confirmed status.
const submitTimeout = 15 * time.Second

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: observability.NewHTTPClient(submitTimeout),
	}
}

type SubmitOrderRequest struct {
	OrderID         string      `json:"order_id"`
	Email           string      `json:"email"`
	Items           []OrderItem `json:"items"`
	ShippingAddress Address     `json:"shipping_address"`
}

type OrderItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Address fields are always present on the wire, empty when the payment
// provider did not collect shipping details.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type submitOrderResponse struct {
	ID string `json:"id"`
}

// SubmitOrder pushes a confirmed order to the partner and returns its
// fulfillment id.
func (c *Client) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("context is required")
	}
	if len(req.Items) == 0 {
		return "", fmt.Errorf("at least one item is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to submit order: %w", err)
	}
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	closeErr := resp.Body.Close()
	if readErr != nil {
		return "", fmt.Errorf("failed to read response: %w", readErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to close response body: %w", closeErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("manufacturer API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed submitOrderResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("manufacturer API returned no fulfillment id")
	}

	return parsed.ID, nil
}
