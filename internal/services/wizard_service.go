package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"critvue-backend/internal/critvue"
	"critvue-backend/internal/database"
	"critvue-backend/internal/payments"
	"critvue-backend/internal/store"
	"critvue-backend/internal/supabase"
	"critvue-backend/internal/wizard"
)

// Sequencing errors surfaced to the handlers.
var (
	// ErrSessionNotActive: the session is blocked, awaiting payment, or
	// already succeeded; step operations are rejected.
	ErrSessionNotActive = errors.New("session is not in an active step state")
	// ErrInFlight: a backend call for this session is still outstanding;
	// the duplicate action is rejected, not queued.
	ErrInFlight = errors.New("a request for this session is already in flight")
	// ErrNotFinalStep: submit was called before the last step.
	ErrNotFinalStep = errors.New("session is not on the final step")
	// ErrNotAwaitingPayment: a payment outcome arrived for a session
	// that is not in the payment state.
	ErrNotAwaitingPayment = errors.New("session is not awaiting payment")
	// ErrPaymentsUnavailable: expert submit without a configured
	// payment provider.
	ErrPaymentsUnavailable = errors.New("payment provider is not configured")
	// ErrDraftNotPersisted: attachments require the marketplace draft
	// record, created when the details step is first left.
	ErrDraftNotPersisted = errors.New("draft has not been persisted yet")
)

// ValidationError carries the per-field reasons the current step blocks
// advancing.
type ValidationError struct {
	Fields []wizard.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step validation failed: %d field(s)", len(e.Fields))
}

// BackendError wraps a marketplace or payment provider failure. The
// message is shown to the creator, who retries the action.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// UploadedFile is one multipart file handed to AttachFiles.
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AttachmentStorage is the storage surface the wizard needs for review
// attachments. Satisfied by supabase.StorageClient.
type AttachmentStorage interface {
	UploadAttachment(userID uuid.UUID, reviewID, filename, contentType string, data []byte) (string, string, error)
	DeleteReviewAttachments(userID uuid.UUID, reviewID string) error
}

// WizardService sequences creators through the review-request creation
// flow: step gating, the mid-flow draft-creation side effect, final
// publish, and the payment handoff for expert requests.
type WizardService struct {
	flow           *wizard.Flow
	sessions       store.SessionStore
	critvueClient  *critvue.Client
	paymentsClient *payments.Client
	storageClient  AttachmentStorage
	dbClient       *database.Client
	realtimeClient *supabase.RealtimeClient
}

func NewWizardService(
	flow *wizard.Flow,
	sessions store.SessionStore,
	critvueClient *critvue.Client,
	paymentsClient *payments.Client,
	storageClient AttachmentStorage,
	dbClient *database.Client,
	realtimeClient *supabase.RealtimeClient,
) *WizardService {
	return &WizardService{
		flow:           flow,
		sessions:       sessions,
		critvueClient:  critvueClient,
		paymentsClient: paymentsClient,
		storageClient:  storageClient,
		dbClient:       dbClient,
		realtimeClient: realtimeClient,
	}
}

// Flow returns the active step table.
func (s *WizardService) Flow() *wizard.Flow {
	return s.flow
}

// StartSession reads the creator's quota once and opens a fresh session
// at step 1. An exhausted quota yields a blocked session carrying the
// snapshot for the upgrade prompt.
func (s *WizardService) StartSession(ctx context.Context, userID uuid.UUID) (*wizard.Session, error) {
	status, err := s.critvueClient.GetSubscriptionStatus(userID.String())
	if err != nil {
		return nil, &BackendError{Op: "subscription check failed", Err: err}
	}

	quota := wizard.Quota{
		HasUnlimitedReviews: status.HasUnlimitedReviews,
		ReviewsRemaining:    status.ReviewsRemaining,
		MonthlyReviewsUsed:  status.MonthlyReviewsUsed,
		MonthlyReviewsLimit: status.MonthlyReviewsLimit,
		Tier:                status.Tier,
		ReviewsResetAt:      status.ReviewsResetAt,
	}

	session := wizard.NewSession(userID, s.flow.Variant, quota)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	event := database.EventSessionStarted
	if session.State == wizard.StateBlocked {
		event = database.EventSessionBlocked
	}
	s.recordEvent(session, event)

	return session, nil
}

// GetSession loads a session, enforcing ownership.
func (s *WizardService) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*wizard.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, store.ErrNotFound
	}
	return session, nil
}

// UpdateDraft merges the provided fields into the session draft. Step
// validation is not run here; it gates the next advance.
func (s *WizardService) UpdateDraft(ctx context.Context, sessionID, userID uuid.UUID, apply func(d *wizard.Draft) error) (*wizard.Session, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.State != wizard.StateActive {
		return nil, ErrSessionNotActive
	}

	if err := apply(&session.Draft); err != nil {
		return nil, err
	}

	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Advance moves the session one step forward when the current step's
// predicate passes. Leaving the details step for the first time persists
// the draft on the marketplace; a failure there keeps the creator on the
// step with the error surfaced, free to retry.
func (s *WizardService) Advance(ctx context.Context, sessionID, userID uuid.UUID) (*wizard.Session, string, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, "", err
	}
	if session.State != wizard.StateActive {
		return nil, "", ErrSessionNotActive
	}

	if fields := wizard.ValidateStep(s.flow, session); len(fields) > 0 {
		return nil, "", &ValidationError{Fields: fields}
	}

	step := s.flow.StepAt(session.CurrentStep)

	if step.CreatesDraft && session.Draft.ReviewID == "" {
		release, err := s.acquire(ctx, session)
		if err != nil {
			return nil, "", err
		}

		reviewType := string(session.Draft.ReviewType)
		if reviewType == "" {
			// Placeholder until the review-type step; patched on submit.
			reviewType = string(wizard.ReviewFree)
		}

		reviewID, createErr := s.critvueClient.CreateReviewRequest(critvue.CreateReviewRequestInput{
			UserID:             session.UserID.String(),
			Title:              session.Draft.Title,
			Description:        session.Draft.Description,
			ContentType:        string(session.Draft.ContentType),
			ContentSubcategory: session.Draft.ContentSubcategory,
			ReviewType:         reviewType,
			Status:             wizard.StatusDraft,
		})
		release()
		if createErr != nil {
			return nil, "", &BackendError{Op: "failed to create review request", Err: createErr}
		}

		session.Draft.ReviewID = reviewID
		s.recordEvent(session, database.EventDraftCreated)
	}

	if session.CurrentStep < s.flow.TotalSteps() {
		session.CurrentStep++
	}
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, "", err
	}

	s.recordEvent(session, database.EventStepEntered)

	return session, wizard.EncouragementFor(step.ID), nil
}

// Back steps the session back by one. At step 1 the session is discarded
// and exit is reported; the client leaves the flow entirely. Fields
// already synced to the marketplace are not reverted.
func (s *WizardService) Back(ctx context.Context, sessionID, userID uuid.UUID) (*wizard.Session, bool, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, false, err
	}
	if session.State != wizard.StateActive {
		return nil, false, ErrSessionNotActive
	}

	if session.CurrentStep == 1 {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return nil, false, err
		}
		s.recordEvent(session, database.EventSessionCancelled)
		return nil, true, nil
	}

	session.CurrentStep--
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, false, err
	}
	return session, false, nil
}

// Submit publishes the request. Free requests go straight to "pending"
// and the session succeeds; expert requests stay "draft" and the session
// enters the payment state until the provider's webhook resolves it.
func (s *WizardService) Submit(ctx context.Context, sessionID, userID uuid.UUID) (*wizard.Session, *payments.Intent, string, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, "", err
	}
	if session.State != wizard.StateActive {
		return nil, nil, "", ErrSessionNotActive
	}
	if session.CurrentStep != s.flow.TotalSteps() {
		return nil, nil, "", ErrNotFinalStep
	}

	// The draft is patchable at any step, so an edit made after its step
	// was passed must not publish an invalid request. Re-check every gate.
	d := &session.Draft
	fields := wizard.ValidateDraft(s.flow, d)
	if d.ReviewID == "" {
		fields = append(fields, wizard.FieldError{Field: "review_id", Message: "draft has not been persisted"})
	}
	if len(fields) > 0 {
		return nil, nil, "", &ValidationError{Fields: fields}
	}

	expert := d.ReviewType == wizard.ReviewExpert
	if expert && s.paymentsClient == nil {
		return nil, nil, "", ErrPaymentsUnavailable
	}

	release, err := s.acquire(ctx, session)
	if err != nil {
		return nil, nil, "", err
	}
	defer release()

	status := wizard.StatusPending
	if expert {
		// Not visible on the marketplace until payment lands.
		status = wizard.StatusDraft
	}

	updated, err := s.critvueClient.UpdateReviewRequest(d.ReviewID, buildUpdateInput(d, status))
	if err != nil {
		return nil, nil, "", &BackendError{Op: "failed to submit review request", Err: err}
	}

	var intent *payments.Intent
	if expert {
		intent, err = s.paymentsClient.CreateIntent(payments.CreateIntentInput{
			ReviewID:        d.ReviewID,
			SessionID:       session.ID.String(),
			Budget:          d.Budget,
			NumberOfReviews: d.NumberOfReviews,
		})
		if err != nil {
			return nil, nil, "", &BackendError{Op: "failed to start payment", Err: err}
		}
		session.State = wizard.StatePayment
		session.PaymentIntentID = intent.IntentID
		s.recordEvent(session, database.EventPaymentRequested)
		s.publishUserEvent(session, "payment_pending", supabase.PaymentPendingPayload(d.ReviewID, intent.IntentID))
	} else {
		session.State = wizard.StateSuccess
		s.recordEvent(session, database.EventSubmitted)
		s.publishUserEvent(session, "review_submitted", supabase.ReviewSubmittedPayload(d.ReviewID, updated.Status))
	}

	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, nil, "", err
	}

	return session, intent, updated.Status, nil
}

// ResolvePayment applies a payment outcome from the provider webhook.
// Success re-patches the review to "pending" and only then marks the
// session successful; cancellation or failure returns the creator to the
// final step with payment cleared.
func (s *WizardService) ResolvePayment(ctx context.Context, event payments.WebhookEvent) (*wizard.Session, error) {
	sessionID, err := uuid.Parse(event.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id in webhook: %w", err)
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != wizard.StatePayment {
		return nil, ErrNotAwaitingPayment
	}

	switch event.Event {
	case payments.EventSucceeded:
		_, err := s.critvueClient.UpdateReviewRequest(session.Draft.ReviewID, critvue.UpdateReviewRequestInput{
			Status: wizard.StatusPending,
		})
		if err != nil {
			return nil, &BackendError{Op: "failed to publish paid review request", Err: err}
		}
		session.State = wizard.StateSuccess
		s.recordEvent(session, database.EventPaymentCompleted)
		s.publishUserEvent(session, "payment_completed", supabase.PaymentCompletedPayload(session.Draft.ReviewID))

	case payments.EventCancelled, payments.EventFailed:
		session.State = wizard.StateActive
		session.PaymentIntentID = ""
		s.recordEvent(session, database.EventPaymentFailed)
		s.publishUserEvent(session, "payment_failed", supabase.PaymentFailedPayload(session.Draft.ReviewID, event.Error))

	default:
		return nil, fmt.Errorf("unknown payment event: %q", event.Event)
	}

	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// AttachFiles uploads review attachments to storage and appends their
// references to the draft. The marketplace draft record must exist so
// uploads can be keyed by review id.
func (s *WizardService) AttachFiles(ctx context.Context, sessionID, userID uuid.UUID, files []UploadedFile) (*wizard.Session, []string, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	if session.State != wizard.StateActive {
		return nil, nil, ErrSessionNotActive
	}
	if session.Draft.ReviewID == "" {
		return nil, nil, ErrDraftNotPersisted
	}

	var uploadErrors []string
	for _, f := range files {
		_, publicURL, err := s.storageClient.UploadAttachment(userID, session.Draft.ReviewID, f.Filename, f.ContentType, f.Data)
		if err != nil {
			uploadErrors = append(uploadErrors, fmt.Sprintf("%s: %v", f.Filename, err))
			continue
		}
		session.Draft.UploadedFiles = append(session.Draft.UploadedFiles, wizard.FileRef{
			URL:         publicURL,
			Filename:    f.Filename,
			Size:        int64(len(f.Data)),
			ContentType: f.ContentType,
		})
	}

	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, uploadErrors, nil
}

// Cancel discards the session. Attachments already uploaded are removed
// from storage; the remote draft record is left to the marketplace's own
// stale-draft cleanup.
func (s *WizardService) Cancel(ctx context.Context, sessionID, userID uuid.UUID) error {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return err
	}

	if session.Draft.ReviewID != "" && s.storageClient != nil {
		if err := s.storageClient.DeleteReviewAttachments(userID, session.Draft.ReviewID); err != nil {
			log.Printf("Failed to delete attachments for review %s: %v", session.Draft.ReviewID, err)
		}
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.recordEvent(session, database.EventSessionCancelled)
	return nil
}

// SessionEvents returns the funnel events recorded for a session.
func (s *WizardService) SessionEvents(ctx context.Context, sessionID, userID uuid.UUID) ([]database.WizardEvent, error) {
	if _, err := s.GetSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	if s.dbClient == nil {
		return nil, nil
	}
	return s.dbClient.ListSessionEvents(sessionID)
}

// acquire takes the per-session in-flight guard, mirrors it on the
// session's InFlight flag, and returns the release func.
func (s *WizardService) acquire(ctx context.Context, session *wizard.Session) (func(), error) {
	ok, err := s.sessions.TryLock(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInFlight
	}

	session.InFlight = true
	if err := s.sessions.Save(ctx, session); err != nil {
		s.sessions.Unlock(ctx, session.ID)
		return nil, err
	}

	return func() {
		session.InFlight = false
		if err := s.sessions.Save(ctx, session); err != nil {
			log.Printf("Failed to clear in-flight flag for session %s: %v", session.ID, err)
		}
		s.sessions.Unlock(ctx, session.ID)
	}, nil
}

func buildUpdateInput(d *wizard.Draft, status string) critvue.UpdateReviewRequestInput {
	input := critvue.UpdateReviewRequestInput{
		ReviewType:      string(d.ReviewType),
		NumberOfReviews: d.NumberOfReviews,
		Status:          status,
		FeedbackAreas:   d.Goals(),
		ExternalLinks:   d.ExternalLinks,
	}

	if d.ReviewType == wizard.ReviewExpert {
		budget := d.Budget
		input.Budget = &budget
		input.Tier = string(d.Tier)
		input.FeedbackPriority = d.FeedbackPriority
		input.SpecificQuestions = d.SpecificQuestions
		input.Context = d.Context
		requiresNDA := d.RequiresNDA
		input.RequiresNDA = &requiresNDA

		input.EstimatedDuration = d.EstimatedDuration
		if input.EstimatedDuration == 0 {
			input.EstimatedDuration = wizard.DefaultDurationMinutes[d.Tier]
		}
	}

	return input
}

func (s *WizardService) recordEvent(session *wizard.Session, event string) {
	if s.dbClient == nil {
		return
	}
	err := s.dbClient.RecordEvent(
		session.ID, session.UserID, session.Draft.ReviewID,
		event, session.CurrentStep, string(session.Variant),
	)
	if err != nil {
		log.Printf("Failed to record wizard event %s for session %s: %v", event, session.ID, err)
	}
}

func (s *WizardService) publishUserEvent(session *wizard.Session, event string, payload map[string]interface{}) {
	if s.realtimeClient == nil {
		return
	}
	if err := s.realtimeClient.PublishUserEvent(session.UserID, event, payload); err != nil {
		log.Printf("Failed to publish %s event for session %s: %v", event, session.ID, err)
	}
}
