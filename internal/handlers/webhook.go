package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"critvue-backend/internal/config"
	"critvue-backend/internal/models"
	"critvue-backend/internal/payments"
	"critvue-backend/internal/services"
	"critvue-backend/internal/store"
)

type WebhookHandler struct {
	config  *config.Config
	service *services.WizardService
}

func NewWebhookHandler(cfg *config.Config, service *services.WizardService) *WebhookHandler {
	return &WebhookHandler{
		config:  cfg,
		service: service,
	}
}

// HandlePaymentWebhook godoc
// @Summary     Payment provider webhook
// @Description Receives payment outcomes for expert review checkouts. A success re-patches the review request to "pending" and marks the session successful; a cancellation or failure returns the creator to the final step. Verified by a shared token.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Authorization header string true "Webhook token (configured with the provider)"
// @Success     200 {object} map[string]string "status"
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /webhooks/payment [post]
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	// Verify the shared webhook token
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "missing authorization token"})
		return
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)

	if h.config.PaymentWebhookToken != "" && token != h.config.PaymentWebhookToken {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid authorization token"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read request body",
			Message: err.Error(),
		})
		return
	}

	var event payments.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse event",
			Message: err.Error(),
		})
		return
	}

	if event.SessionID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing session_id in event"})
		return
	}

	if _, err := h.service.ResolvePayment(c.Request.Context(), event); err != nil {
		var backendErr *services.BackendError
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Session expired or already gone; acknowledge so the
			// provider stops retrying.
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "session no longer exists"})
		case errors.Is(err, services.ErrNotAwaitingPayment):
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "session is not awaiting payment"})
		case errors.As(err, &backendErr):
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   backendErr.Op,
				Message: backendErr.Err.Error(),
			})
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to process event", Message: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
