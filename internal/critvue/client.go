package critvue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client wraps the Critvue marketplace REST API. Every call is a single
// attempt: the wizard surfaces failures to the creator, who retries the
// action themselves.
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

// CreateReviewRequestInput is the subset of fields known when the draft
// record is first persisted, at the end of the details step.
type CreateReviewRequestInput struct {
	UserID             string `json:"user_id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	ContentType        string `json:"content_type"`
	ContentSubcategory string `json:"content_subcategory,omitempty"`
	// ReviewType is a placeholder at creation time; the real value is
	// patched in on submit.
	ReviewType string `json:"review_type"`
	Status     string `json:"status"`
}

type CreateReviewRequestResponse struct {
	ID string `json:"id"`
}

// UpdateReviewRequestInput is the full payload assembled on submit.
// Expert-only fields are omitted for free requests.
type UpdateReviewRequestInput struct {
	ReviewType        string   `json:"review_type,omitempty"`
	NumberOfReviews   int      `json:"number_of_reviews,omitempty"`
	Status            string   `json:"status,omitempty"`
	FeedbackAreas     []string `json:"feedback_areas,omitempty"`
	ExternalLinks     []string `json:"external_links,omitempty"`
	Budget            *float64 `json:"budget,omitempty"`
	Tier              string   `json:"tier,omitempty"`
	FeedbackPriority  string   `json:"feedback_priority,omitempty"`
	SpecificQuestions string   `json:"specific_questions,omitempty"`
	Context           string   `json:"context,omitempty"`
	EstimatedDuration int      `json:"estimated_duration,omitempty"`
	RequiresNDA       *bool    `json:"requires_nda,omitempty"`
}

// ReviewRequest is the marketplace record as returned by update calls.
type ReviewRequest struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	ContentType       string    `json:"content_type"`
	ReviewType        string    `json:"review_type"`
	Status            string    `json:"status"`
	NumberOfReviews   int       `json:"number_of_reviews"`
	FeedbackAreas     []string  `json:"feedback_areas"`
	ExternalLinks     []string  `json:"external_links"`
	Budget            float64   `json:"budget"`
	Tier              string    `json:"tier"`
	EstimatedDuration int       `json:"estimated_duration"`
	RequiresNDA       bool      `json:"requires_nda"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SubscriptionStatus is the quota snapshot read once at flow entry.
type SubscriptionStatus struct {
	HasUnlimitedReviews bool      `json:"has_unlimited_reviews"`
	ReviewsRemaining    int       `json:"reviews_remaining"`
	MonthlyReviewsUsed  int       `json:"monthly_reviews_used"`
	MonthlyReviewsLimit int       `json:"monthly_reviews_limit"`
	Tier                string    `json:"tier"`
	ReviewsResetAt      time.Time `json:"reviews_reset_at"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateReviewRequest persists a new draft review request and returns
// its id.
func (c *Client) CreateReviewRequest(input CreateReviewRequestInput) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := strings.TrimSuffix(c.baseURL, "/") + "/review-requests"
	req, err := http.NewRequest("POST", reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to create review request: %s", errorMessage(resp.StatusCode, body))
	}

	var result CreateReviewRequestResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	if result.ID == "" {
		return "", fmt.Errorf("review request id is empty in response, body: %s", string(body))
	}

	return result.ID, nil
}

// UpdateReviewRequest patches an existing review request and returns the
// updated record.
func (c *Client) UpdateReviewRequest(reviewID string, input UpdateReviewRequestInput) (*ReviewRequest, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := strings.TrimSuffix(c.baseURL, "/") + "/review-requests/" + reviewID
	req, err := http.NewRequest("PATCH", reqURL, bytes.NewBuffer(jsonData))
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

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to update review request: %s", errorMessage(resp.StatusCode, body))
	}

	var result ReviewRequest
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return &result, nil
}

// GetSubscriptionStatus reads the creator's free review quota.
func (c *Client) GetSubscriptionStatus(userID string) (*SubscriptionStatus, error) {
	reqURL := strings.TrimSuffix(c.baseURL, "/") + "/subscriptions/status?user_id=" + url.QueryEscape(userID)
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get subscription status: %s", errorMessage(resp.StatusCode, body))
	}

	var result SubscriptionStatus
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return &result, nil
}

// errorMessage derives a user-facing message from an error payload,
// falling back to the raw body.
func errorMessage(statusCode int, body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	return fmt.Sprintf("status %d, body: %s", statusCode, string(body))
}
