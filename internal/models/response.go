package models

import (
	"time"

	"critvue-backend/internal/wizard"
)

type SessionResponse struct {
	SessionID       string        `json:"session_id"`
	Variant         string        `json:"variant"`
	CurrentStep     int           `json:"current_step"`
	TotalSteps      int           `json:"total_steps"`
	State           string        `json:"state"`
	Draft           wizard.Draft  `json:"draft"`
	Quota           *wizard.Quota `json:"quota,omitempty"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type AdvanceResponse struct {
	SessionResponse
	// Encouragement is a transient message for the step just left;
	// clients show it briefly and drop it.
	Encouragement string `json:"encouragement,omitempty"`
}

type BackResponse struct {
	// Exit is true when back was pressed on step 1: the session is gone
	// and the client should navigate to the dashboard.
	Exit    bool             `json:"exit"`
	Session *SessionResponse `json:"session,omitempty"`
}

type SubmitResponse struct {
	SessionResponse
	ReviewStatus  string             `json:"review_status"`
	PaymentIntent *PaymentIntentInfo `json:"payment_intent,omitempty"`
}

type PaymentIntentInfo struct {
	IntentID string `json:"intent_id"`
	Status   string `json:"status"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Fields []wizard.FieldError `json:"fields,omitempty"`
}

type AttachmentResponse struct {
	Files  []wizard.FileRef `json:"files"`
	Errors []string         `json:"errors,omitempty"`
}

type SessionEventsResponse struct {
	Events []SessionEvent `json:"events"`
}

type SessionEvent struct {
	Event     string    `json:"event"`
	Step      int       `json:"step"`
	Variant   string    `json:"variant"`
	ReviewID  string    `json:"review_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
