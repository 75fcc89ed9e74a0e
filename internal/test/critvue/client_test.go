package critvue_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"critvue-backend/internal/critvue"
)

func TestCreateReviewRequest(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "rev-42"})
	}))
	defer server.Close()

	client := critvue.NewClient(server.URL, "secret-key")
	id, err := client.CreateReviewRequest(critvue.CreateReviewRequestInput{
		UserID:      "user-1",
		Title:       "Portfolio site",
		Description: "General feedback wanted.",
		ContentType: "design",
		ReviewType:  "free",
		Status:      "draft",
	})

	require.NoError(t, err)
	assert.Equal(t, "rev-42", id)
	assert.Equal(t, "POST /review-requests", gotPath)
	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, "draft", gotBody["status"])
}

func TestCreateReviewRequest_SurfacesAPIMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "validation failed",
			"message": "title contains forbidden words",
		})
	}))
	defer server.Close()

	client := critvue.NewClient(server.URL, "secret-key")
	_, err := client.CreateReviewRequest(critvue.CreateReviewRequestInput{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "title contains forbidden words")
}

func TestCreateReviewRequest_EmptyIDRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := critvue.NewClient(server.URL, "secret-key")
	_, err := client.CreateReviewRequest(critvue.CreateReviewRequestInput{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is empty")
}

func TestUpdateReviewRequest(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "rev-42", "status": "pending"})
	}))
	defer server.Close()

	client := critvue.NewClient(server.URL, "secret-key")
	budget := 50.0
	updated, err := client.UpdateReviewRequest("rev-42", critvue.UpdateReviewRequestInput{
		ReviewType: "expert",
		Status:     "pending",
		Budget:     &budget,
	})

	require.NoError(t, err)
	assert.Equal(t, "PATCH /review-requests/rev-42", gotPath)
	assert.Equal(t, "pending", updated.Status)
	assert.Equal(t, float64(50), gotBody["budget"])
}

func TestUpdateReviewRequest_OmitsUnsetFields(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "rev-42"})
	}))
	defer server.Close()

	client := critvue.NewClient(server.URL, "secret-key")
	_, err := client.UpdateReviewRequest("rev-42", critvue.UpdateReviewRequestInput{Status: "pending"})

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"status": "pending"}, gotBody)
}

func TestGetSubscriptionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscriptions/status", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("user_id"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"has_unlimited_reviews": false,
			"reviews_remaining":     1,
			"monthly_reviews_used":  2,
			"monthly_reviews_limit": 3,
			"tier":                  "starter",
		})
	}))
	defer server.Close()

	client := critvue.NewClient(server.URL, "secret-key")
	status, err := client.GetSubscriptionStatus("user-1")

	require.NoError(t, err)
	assert.False(t, status.HasUnlimitedReviews)
	assert.Equal(t, 1, status.ReviewsRemaining)
	assert.Equal(t, 3, status.MonthlyReviewsLimit)
}

func TestGetSubscriptionStatus_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := critvue.NewClient(server.URL, "secret-key")
	_, err := client.GetSubscriptionStatus("user-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
