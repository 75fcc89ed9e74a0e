package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"critvue-backend/internal/middleware"
	"critvue-backend/internal/models"
	"critvue-backend/internal/services"
	"critvue-backend/internal/store"
	"critvue-backend/internal/wizard"
)

type SessionsHandler struct {
	service *services.WizardService
}

func NewSessionsHandler(service *services.WizardService) *SessionsHandler {
	return &SessionsHandler{service: service}
}

// StartSession godoc
// @Summary     Start a review-request creation session
// @Description Checks the creator's free-review quota and opens a fresh wizard session at step 1. A spent quota yields a blocked session carrying the quota snapshot for the upgrade prompt.
// @Tags        wizard
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SessionResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /wizard/sessions [post]
func (h *SessionsHandler) StartSession(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	session, err := h.service.StartSession(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// GetSession godoc
// @Summary     Fetch a wizard session
// @Tags        wizard
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Success     200 {object} models.SessionResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id} [get]
func (h *SessionsHandler) GetSession(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// UpdateDraft godoc
// @Summary     Merge fields into the session draft
// @Description Partial update: only fields present in the body change. Step validation is not run here; it gates the next advance.
// @Tags        wizard
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Param       draft body models.UpdateDraftRequest true "Draft fields to merge"
// @Success     200 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id}/draft [patch]
func (h *SessionsHandler) UpdateDraft(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req models.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	session, err := h.service.UpdateDraft(c.Request.Context(), sessionID, userID, func(d *wizard.Draft) error {
		return mergeDraft(d, &req)
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// Advance godoc
// @Summary     Advance to the next step
// @Description Gates on the current step's validity. Leaving the details step for the first time persists the draft on the marketplace; a backend failure keeps the session on the current step for retry.
// @Tags        wizard
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Success     200 {object} models.AdvanceResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     422 {object} models.ValidationErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id}/advance [post]
func (h *SessionsHandler) Advance(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	session, encouragement, err := h.service.Advance(c.Request.Context(), sessionID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AdvanceResponse{
		SessionResponse: h.sessionResponse(session),
		Encouragement:   encouragement,
	})
}

// Back godoc
// @Summary     Go back one step
// @Description At step 1 the session is discarded and exit is reported; the client navigates to the dashboard. Fields already synced to the marketplace are not reverted.
// @Tags        wizard
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Success     200 {object} models.BackResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id}/back [post]
func (h *SessionsHandler) Back(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	session, exit, err := h.service.Back(c.Request.Context(), sessionID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := models.BackResponse{Exit: exit}
	if session != nil {
		sr := h.sessionResponse(session)
		resp.Session = &sr
	}
	c.JSON(http.StatusOK, resp)
}

// Submit godoc
// @Summary     Submit the review request from the final step
// @Description Free requests are published immediately; expert requests stay draft and the session enters the payment state until the provider webhook resolves it. Duplicate submits while a call is outstanding are rejected.
// @Tags        wizard
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Success     200 {object} models.SubmitResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     422 {object} models.ValidationErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id}/submit [post]
func (h *SessionsHandler) Submit(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	session, intent, reviewStatus, err := h.service.Submit(c.Request.Context(), sessionID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := models.SubmitResponse{
		SessionResponse: h.sessionResponse(session),
		ReviewStatus:    reviewStatus,
	}
	if intent != nil {
		resp.PaymentIntent = &models.PaymentIntentInfo{
			IntentID: intent.IntentID,
			Status:   intent.Status,
			Amount:   intent.Amount,
			Currency: intent.Currency,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// CancelSession godoc
// @Summary     Cancel a session
// @Tags        wizard
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Success     200 {object} map[string]string
// @Failure     404 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id} [delete]
func (h *SessionsHandler) CancelSession(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), sessionID, userID); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session cancelled"})
}

// SessionEvents godoc
// @Summary     List a session's funnel events
// @Tags        wizard
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID (UUID)"
// @Success     200 {object} models.SessionEventsResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /wizard/sessions/{session_id}/events [get]
func (h *SessionsHandler) SessionEvents(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	events, err := h.service.SessionEvents(c.Request.Context(), sessionID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	out := make([]models.SessionEvent, len(events))
	for i, ev := range events {
		out[i] = models.SessionEvent{
			Event:     ev.Event,
			Step:      ev.Step,
			Variant:   ev.Variant,
			CreatedAt: ev.CreatedAt,
		}
		if ev.ReviewID.Valid {
			out[i].ReviewID = ev.ReviewID.String
		}
	}
	c.JSON(http.StatusOK, models.SessionEventsResponse{Events: out})
}

func (h *SessionsHandler) sessionResponse(session *wizard.Session) models.SessionResponse {
	resp := models.SessionResponse{
		SessionID:       session.ID.String(),
		Variant:         string(session.Variant),
		CurrentStep:     session.CurrentStep,
		TotalSteps:      h.service.Flow().TotalSteps(),
		State:           string(session.State),
		Draft:           session.Draft,
		PaymentIntentID: session.PaymentIntentID,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
	if session.State == wizard.StateBlocked {
		quota := session.Quota
		resp.Quota = &quota
	}
	return resp
}

func writeServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var backendErr *services.BackendError
	var fieldErr *fieldValueError

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, models.ValidationErrorResponse{
			Error:  "step validation failed",
			Fields: validationErr.Fields,
		})
	case errors.Is(err, services.ErrInFlight):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "request already in flight"})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "session is not active"})
	case errors.Is(err, services.ErrNotFinalStep):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "session is not on the final step"})
	case errors.Is(err, services.ErrDraftNotPersisted):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "complete the details step before uploading files"})
	case errors.Is(err, services.ErrPaymentsUnavailable):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "payments are not available"})
	case errors.As(err, &backendErr):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   backendErr.Op,
			Message: backendErr.Err.Error(),
		})
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fieldErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Message: err.Error()})
	}
}

// authedUser pulls the authenticated user id set by the auth middleware.
func authedUser(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}

func sessionParam(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid session id"})
		return uuid.Nil, false
	}
	return sessionID, true
}

type fieldValueError struct {
	field string
	value string
}

func (e *fieldValueError) Error() string {
	return fmt.Sprintf("invalid value %q for field %s", e.value, e.field)
}

// mergeDraft applies the fields present in the request onto the draft,
// rejecting unknown enum values. Uploaded files change only through the
// attachments endpoint, and the review id never changes from outside.
func mergeDraft(d *wizard.Draft, req *models.UpdateDraftRequest) error {
	if req.ContentType != nil {
		ct := wizard.ContentType(*req.ContentType)
		switch ct {
		case wizard.ContentDesign, wizard.ContentCode, wizard.ContentVideo, wizard.ContentAudio,
			wizard.ContentWriting, wizard.ContentArt, wizard.ContentPhotography, wizard.ContentOther:
			d.ContentType = ct
		default:
			return &fieldValueError{field: "content_type", value: *req.ContentType}
		}
	}
	if req.ContentSubcategory != nil {
		d.ContentSubcategory = *req.ContentSubcategory
	}
	if req.Title != nil {
		d.Title = *req.Title
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.ExternalLinks != nil {
		d.ExternalLinks = *req.ExternalLinks
	}
	if req.FeedbackGoals != nil {
		d.FeedbackGoals = *req.FeedbackGoals
	}
	if req.CustomGoal != nil {
		d.CustomGoal = *req.CustomGoal
	}
	if req.ReviewType != nil {
		rt := wizard.ReviewType(*req.ReviewType)
		switch rt {
		case wizard.ReviewFree, wizard.ReviewExpert:
			d.ReviewType = rt
		default:
			return &fieldValueError{field: "review_type", value: *req.ReviewType}
		}
	}
	if req.Tier != nil {
		tier := wizard.Tier(*req.Tier)
		switch tier {
		case wizard.TierQuick, wizard.TierStandard, wizard.TierDeep:
			d.Tier = tier
		default:
			return &fieldValueError{field: "tier", value: *req.Tier}
		}
	}
	if req.FeedbackPriority != nil {
		d.FeedbackPriority = *req.FeedbackPriority
	}
	if req.SpecificQuestions != nil {
		d.SpecificQuestions = *req.SpecificQuestions
	}
	if req.Context != nil {
		d.Context = *req.Context
	}
	if req.EstimatedDuration != nil {
		d.EstimatedDuration = *req.EstimatedDuration
	}
	if req.RequiresNDA != nil {
		d.RequiresNDA = *req.RequiresNDA
	}
	if req.Budget != nil {
		d.Budget = *req.Budget
	}
	if req.NumberOfReviews != nil {
		d.NumberOfReviews = *req.NumberOfReviews
	}
	return nil
}
