package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client wraps the payment provider used for expert review checkout. The
// wizard only creates intents; the outcome arrives on the payment
// webhook.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateIntentInput carries the checkout parameters for one expert
// review request. SessionID is echoed back on the webhook so the outcome
// can be routed to the right wizard session.
type CreateIntentInput struct {
	ReviewID        string  `json:"review_id"`
	SessionID       string  `json:"session_id"`
	Budget          float64 `json:"budget"`
	NumberOfReviews int     `json:"number_of_reviews"`
}

// Intent is the provider's payment intent record.
type Intent struct {
	IntentID string `json:"intent_id"`
	Status   string `json:"status"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

// Webhook event names sent by the provider.
const (
	EventSucceeded = "payment.succeeded"
	EventCancelled = "payment.cancelled"
	EventFailed    = "payment.failed"
)

// WebhookEvent is the callback envelope posted by the provider.
type WebhookEvent struct {
	Event     string `json:"event"`
	IntentID  string `json:"intent_id"`
	SessionID string `json:"session_id"`
	ReviewID  string `json:"review_id"`
	Error     string `json:"error,omitempty"`
}

// CreateIntent opens a payment intent for an expert review request.
// Single attempt, like every backend call in the creation flow.
func (c *Client) CreateIntent(input CreateIntentInput) (*Intent, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := strings.TrimSuffix(c.baseURL, "/") + "/intents"
	req, err := http.NewRequest("POST", reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed to create payment intent: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result Intent
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	if result.IntentID == "" {
		return nil, fmt.Errorf("intent_id is empty in response, body: %s", string(body))
	}

	return &result, nil
}
