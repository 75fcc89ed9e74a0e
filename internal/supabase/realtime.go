package supabase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RealtimeClient broadcasts wizard events to Supabase Realtime channels
// over the Realtime REST API. Clients subscribed to their user channel
// pick these up for toasts and payment status updates.
type RealtimeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRealtimeClient(client *Client) *RealtimeClient {
	return &RealtimeClient{
		baseURL: strings.TrimSuffix(client.Config.SupabaseURL, "/"),
		apiKey:  client.Config.SupabasePublishableKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type broadcastMessage struct {
	Topic   string                 `json:"topic"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

type broadcastRequest struct {
	Messages []broadcastMessage `json:"messages"`
}

// PublishEvent posts one broadcast message to a channel.
func (r *RealtimeClient) PublishEvent(channel string, event string, payload map[string]interface{}) error {
	jsonData, err := json.Marshal(broadcastRequest{
		Messages: []broadcastMessage{{Topic: channel, Event: event, Payload: payload}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast: %w", err)
	}

	reqURL := r.baseURL + "/realtime/v1/api/broadcast"
	req, err := http.NewRequest("POST", reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("broadcast failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (r *RealtimeClient) PublishReviewEvent(reviewID string, event string, payload map[string]interface{}) error {
	channel := fmt.Sprintf("review:%s", reviewID)
	return r.PublishEvent(channel, event, payload)
}

func (r *RealtimeClient) PublishUserEvent(userID uuid.UUID, event string, payload map[string]interface{}) error {
	channel := fmt.Sprintf("user:%s", userID.String())
	return r.PublishEvent(channel, event, payload)
}

// Event payloads
func ReviewSubmittedPayload(reviewID, status string) map[string]interface{} {
	return map[string]interface{}{
		"review_id": reviewID,
		"status":    status,
	}
}

func PaymentPendingPayload(reviewID, intentID string) map[string]interface{} {
	return map[string]interface{}{
		"review_id": reviewID,
		"status":    "awaiting_payment",
		"intent_id": intentID,
	}
}

func PaymentCompletedPayload(reviewID string) map[string]interface{} {
	return map[string]interface{}{
		"review_id": reviewID,
		"status":    "pending",
	}
}

func PaymentFailedPayload(reviewID, errorMsg string) map[string]interface{} {
	return map[string]interface{}{
		"review_id": reviewID,
		"status":    "payment_failed",
		"error":     errorMsg,
	}
}
