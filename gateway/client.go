package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.stripe.com"

// Charge is the gateway-side record of a funds-movement attempt.
type Charge struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	PaymentIntentID string `json:"payment_intent"`
	ReceiptURL      string `json:"receipt_url"`
	PaymentMethod   string `json:"payment_method"`
	FailureMessage  string `json:"failure_message"`
	FailureCode     string `json:"failure_code"`
}

// Client talks to the gateway REST API with the account's secret key. It is
// constructed once in main and injected wherever gateway access is needed;
// there is no package-level client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// RetrieveCharge fetches a charge by id. Used to recover the receipt URL when
// a payment_intent event only carries latest_charge.
func (c *Client) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	if chargeID == "" {
		return nil, fmt.Errorf("gateway: empty charge id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/charges/"+chargeID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: retrieve charge %s: %w", chargeID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("gateway: read charge %s: %w", chargeID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway: retrieve charge %s: status %d: %s", chargeID, resp.StatusCode, body)
	}

	var ch Charge
	if err := json.Unmarshal(body, &ch); err != nil {
		return nil, fmt.Errorf("gateway: decode charge %s: %w", chargeID, err)
	}
	return &ch, nil
}
