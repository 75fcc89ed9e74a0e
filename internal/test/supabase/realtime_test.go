package supabase_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"critvue-backend/internal/config"
	"critvue-backend/internal/supabase"
)

func newRealtimeClient(serverURL string) *supabase.RealtimeClient {
	return supabase.NewRealtimeClient(&supabase.Client{
		Config: &config.Config{
			SupabaseURL:            serverURL,
			SupabasePublishableKey: "anon-key",
		},
	})
}

func TestPublishUserEvent(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	var gotBody struct {
		Messages []struct {
			Topic   string                 `json:"topic"`
			Event   string                 `json:"event"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newRealtimeClient(server.URL)
	userID := uuid.New()
	err := client.PublishUserEvent(userID, "review_submitted", supabase.ReviewSubmittedPayload("rev-1", "pending"))

	require.NoError(t, err)
	assert.Equal(t, "POST /realtime/v1/api/broadcast", gotPath)
	assert.Equal(t, "anon-key", gotKey)
	assert.Equal(t, "Bearer anon-key", gotAuth)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user:"+userID.String(), gotBody.Messages[0].Topic)
	assert.Equal(t, "review_submitted", gotBody.Messages[0].Event)
	assert.Equal(t, "rev-1", gotBody.Messages[0].Payload["review_id"])
}

func TestPublishReviewEvent_Channel(t *testing.T) {
	var gotTopic string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Topic string `json:"topic"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) > 0 {
			gotTopic = body.Messages[0].Topic
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newRealtimeClient(server.URL)
	err := client.PublishReviewEvent("rev-7", "payment_completed", supabase.PaymentCompletedPayload("rev-7"))

	require.NoError(t, err)
	assert.Equal(t, "review:rev-7", gotTopic)
}

func TestPublishEvent_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("realtime down"))
	}))
	defer server.Close()

	client := newRealtimeClient(server.URL)
	err := client.PublishEvent("user:abc", "review_submitted", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
