package wizard

import (
	"time"

	"github.com/google/uuid"
)

// ContentType is the category of creative work a review request is about.
type ContentType string

const (
	ContentDesign      ContentType = "design"
	ContentCode        ContentType = "code"
	ContentVideo       ContentType = "video"
	ContentAudio       ContentType = "audio"
	ContentWriting     ContentType = "writing"
	ContentArt         ContentType = "art"
	ContentPhotography ContentType = "photography"
	ContentOther       ContentType = "other"
)

// ReviewType distinguishes free community reviews from paid expert reviews.
type ReviewType string

const (
	ReviewFree   ReviewType = "free"
	ReviewExpert ReviewType = "expert"
)

// Tier is the expert review depth.
type Tier string

const (
	TierQuick    Tier = "quick"
	TierStandard Tier = "standard"
	TierDeep     Tier = "deep"
)

// DefaultDurationMinutes maps an expert tier to its default estimated
// review duration, used when the creator doesn't set one explicitly.
var DefaultDurationMinutes = map[Tier]int{
	TierQuick:    10,
	TierStandard: 20,
	TierDeep:     45,
}

// Review request status values on the marketplace API.
const (
	StatusDraft   = "draft"
	StatusPending = "pending"
)

// Reviewer slot bounds per review type.
const (
	MaxFreeReviews   = 3
	MaxExpertReviews = 10
)

// MaxReviews returns the upper bound on reviewer slots for a review type.
func MaxReviews(rt ReviewType) int {
	if rt == ReviewExpert {
		return MaxExpertReviews
	}
	return MaxFreeReviews
}

// FileRef records one uploaded file attached to the draft. The bytes live
// in storage; the draft only tracks the reference.
type FileRef struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Draft is the accumulated state of one in-progress review request. It is
// held in the session until submit publishes it on the marketplace.
type Draft struct {
	ContentType        ContentType `json:"content_type"`
	ContentSubcategory string      `json:"content_subcategory"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	UploadedFiles      []FileRef   `json:"uploaded_files"`
	ExternalLinks      []string    `json:"external_links"`
	FeedbackGoals      []string    `json:"feedback_goals"`
	CustomGoal         string      `json:"custom_goal"`
	ReviewType         ReviewType  `json:"review_type"`
	Tier               Tier        `json:"tier"`
	FeedbackPriority   string      `json:"feedback_priority"`
	SpecificQuestions  string      `json:"specific_questions"`
	Context            string      `json:"context"`
	EstimatedDuration  int         `json:"estimated_duration"`
	RequiresNDA        bool        `json:"requires_nda"`
	Budget             float64     `json:"budget"`
	NumberOfReviews    int         `json:"number_of_reviews"`

	// ReviewID is assigned by the marketplace when the draft record is
	// first persisted (leaving the details step). Empty before that,
	// never reassigned afterwards.
	ReviewID string `json:"review_id"`
}

// HasWork reports whether the creator attached at least one file or link.
func (d *Draft) HasWork() bool {
	return len(d.UploadedFiles) > 0 || len(d.ExternalLinks) > 0
}

// HasGoals reports whether at least one feedback goal is selected or a
// custom goal was typed in.
func (d *Draft) HasGoals() bool {
	if len(d.FeedbackGoals) > 0 {
		return true
	}
	return trimmed(d.CustomGoal) != ""
}

// Goals returns the selected goals plus the custom one, for the
// marketplace feedback_areas field.
func (d *Draft) Goals() []string {
	goals := make([]string, 0, len(d.FeedbackGoals)+1)
	goals = append(goals, d.FeedbackGoals...)
	if g := trimmed(d.CustomGoal); g != "" {
		goals = append(goals, g)
	}
	return goals
}

// State is the session's UI-level state. Exactly one is active at a time.
type State string

const (
	// StateActive: the creator is working through the steps.
	StateActive State = "active"
	// StateBlocked: the quota check found no free reviews remaining; the
	// flow is replaced by an upgrade prompt. Terminal for the session.
	StateBlocked State = "blocked"
	// StatePayment: an expert request was submitted and awaits payment.
	StatePayment State = "payment"
	// StateSuccess: the request is published on the marketplace.
	StateSuccess State = "success"
)

// Quota is the subscription snapshot taken at flow entry.
type Quota struct {
	HasUnlimitedReviews bool      `json:"has_unlimited_reviews"`
	ReviewsRemaining    int       `json:"reviews_remaining"`
	MonthlyReviewsUsed  int       `json:"monthly_reviews_used"`
	MonthlyReviewsLimit int       `json:"monthly_reviews_limit"`
	Tier                string    `json:"tier"`
	ReviewsResetAt      time.Time `json:"reviews_reset_at"`
}

// Exhausted reports whether the subscription has no free reviews left.
func (q Quota) Exhausted() bool {
	return !q.HasUnlimitedReviews && q.ReviewsRemaining <= 0
}

// Session is one creator's in-progress run through the creation wizard.
type Session struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Variant         Variant   `json:"variant"`
	CurrentStep     int       `json:"current_step"`
	Draft           Draft     `json:"draft"`
	State           State     `json:"state"`
	InFlight        bool      `json:"in_flight"`
	Quota           Quota     `json:"quota"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewSession starts a fresh session at step 1 of the given variant.
func NewSession(userID uuid.UUID, variant Variant, quota Quota) *Session {
	now := time.Now().UTC()
	state := StateActive
	if quota.Exhausted() {
		state = StateBlocked
	}
	return &Session{
		ID:          uuid.New(),
		UserID:      userID,
		Variant:     variant,
		CurrentStep: 1,
		State:       state,
		Quota:       quota,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
