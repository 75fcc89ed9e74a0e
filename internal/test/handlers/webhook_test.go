package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"critvue-backend/internal/config"
	"critvue-backend/internal/critvue"
	"critvue-backend/internal/handlers"
	"critvue-backend/internal/services"
	"critvue-backend/internal/store"
	"critvue-backend/internal/wizard"
)

func newWebhookRouter(t *testing.T) (*gin.Engine, store.SessionStore) {
	t.Helper()

	flow, err := wizard.FlowFor(wizard.VariantClassic7)
	require.NoError(t, err)

	sessions := store.NewMemoryStore()
	service := services.NewWizardService(
		flow, sessions,
		critvue.NewClient(marketplaceStub(t).URL, "test-key"),
		nil, nil, nil, nil,
	)

	cfg := &config.Config{PaymentWebhookToken: "hook-secret"}
	handler := handlers.NewWebhookHandler(cfg, service)

	router := gin.New()
	router.POST("/webhooks/payment", handler.HandlePaymentWebhook)
	return router, sessions
}

func postWebhook(router *gin.Engine, token string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/webhooks/payment", bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPaymentWebhook_MissingToken(t *testing.T) {
	router, _ := newWebhookRouter(t)

	w := postWebhook(router, "", gin.H{"event": "payment.succeeded"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentWebhook_WrongToken(t *testing.T) {
	router, _ := newWebhookRouter(t)

	w := postWebhook(router, "not-the-secret", gin.H{"event": "payment.succeeded"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentWebhook_MissingSessionID(t *testing.T) {
	router, _ := newWebhookRouter(t)

	w := postWebhook(router, "hook-secret", gin.H{"event": "payment.succeeded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// An outcome for a session that has since expired is acknowledged so the
// provider stops retrying.
func TestPaymentWebhook_UnknownSessionIsAcked(t *testing.T) {
	router, _ := newWebhookRouter(t)

	w := postWebhook(router, "hook-secret", gin.H{
		"event":      "payment.succeeded",
		"session_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "session no longer exists")
}

func TestPaymentWebhook_SessionNotAwaitingPayment(t *testing.T) {
	router, sessions := newWebhookRouter(t)

	session := wizard.NewSession(uuid.New(), wizard.VariantClassic7, wizard.Quota{HasUnlimitedReviews: true})
	require.NoError(t, sessions.Save(context.Background(), session))

	w := postWebhook(router, "hook-secret", gin.H{
		"event":      "payment.succeeded",
		"session_id": session.ID.String(),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPaymentWebhook_CancellationReturnsCreatorToFlow(t *testing.T) {
	router, sessions := newWebhookRouter(t)

	session := wizard.NewSession(uuid.New(), wizard.VariantClassic7, wizard.Quota{HasUnlimitedReviews: true})
	session.CurrentStep = 7
	session.State = wizard.StatePayment
	session.PaymentIntentID = "pi_9"
	session.Draft.ReviewID = "rev-9"
	require.NoError(t, sessions.Save(context.Background(), session))

	w := postWebhook(router, "hook-secret", gin.H{
		"event":      "payment.cancelled",
		"session_id": session.ID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateActive, got.State)
	assert.Empty(t, got.PaymentIntentID)
}
