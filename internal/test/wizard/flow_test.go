package wizard_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"critvue-backend/internal/wizard"
)

func newActiveSession(t *testing.T, variant wizard.Variant) *wizard.Session {
	t.Helper()
	session := wizard.NewSession(uuid.New(), variant, wizard.Quota{HasUnlimitedReviews: true})
	require.Equal(t, wizard.StateActive, session.State)
	require.Equal(t, 1, session.CurrentStep)
	return session
}

func TestFlowTables(t *testing.T) {
	lengths := map[wizard.Variant]int{
		wizard.VariantClassic7:   7,
		wizard.VariantCondensed5: 5,
		wizard.VariantRevised7:   7,
	}

	for variant, want := range lengths {
		flow, err := wizard.FlowFor(variant)
		require.NoError(t, err)
		assert.Equal(t, want, flow.TotalSteps(), "variant %s", variant)

		// Exactly one step persists the draft record.
		creates := 0
		for _, step := range flow.Steps {
			if step.CreatesDraft {
				creates++
			}
		}
		assert.Equal(t, 1, creates, "variant %s", variant)

		// Every flow ends on the preview step, which never blocks.
		last := flow.StepAt(flow.TotalSteps())
		assert.Equal(t, wizard.StepPreview, last.ID, "variant %s", variant)
	}
}

func TestFlowFor_Unknown(t *testing.T) {
	_, err := wizard.FlowFor("sixstep")
	assert.Error(t, err)
	assert.False(t, wizard.KnownVariant("sixstep"))
	assert.True(t, wizard.KnownVariant(wizard.VariantClassic7))
}

func TestCanAdvance_ContentTypeStep(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)

	assert.False(t, wizard.CanAdvance(flow, session))

	session.Draft.ContentType = wizard.ContentCode
	assert.True(t, wizard.CanAdvance(flow, session))
}

func TestCanAdvance_DetailsStep(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)
	session.CurrentStep = 2

	session.Draft.ContentType = wizard.ContentCode
	session.Draft.Title = "ab"
	session.Draft.Description = "short desc ok?"
	assert.False(t, wizard.CanAdvance(flow, session), "title of 2 characters is too short")

	session.Draft.Title = "abc"
	assert.True(t, wizard.CanAdvance(flow, session))

	// Whitespace doesn't count toward the minimums.
	session.Draft.Title = "  ab  "
	assert.False(t, wizard.CanAdvance(flow, session))

	session.Draft.Title = "abc"
	session.Draft.Description = "too short"
	assert.False(t, wizard.CanAdvance(flow, session))
}

func TestCanAdvance_DetailsStep_FieldMessages(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)
	session.CurrentStep = 2

	fields := wizard.ValidateStep(flow, session)
	require.Len(t, fields, 2)
	assert.Equal(t, "title", fields[0].Field)
	assert.Equal(t, "description", fields[1].Field)
}

func TestCanAdvance_UploadsStep(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)
	session.CurrentStep = 3

	assert.False(t, wizard.CanAdvance(flow, session))

	session.Draft.ExternalLinks = []string{"https://example.com/my-work"}
	assert.True(t, wizard.CanAdvance(flow, session), "a link alone is enough")

	session.Draft.ExternalLinks = nil
	session.Draft.UploadedFiles = []wizard.FileRef{{URL: "https://cdn.example.com/a.png", Filename: "a.png"}}
	assert.True(t, wizard.CanAdvance(flow, session), "a file alone is enough")
}

func TestCanAdvance_GoalsStep(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)
	session.CurrentStep = 4

	assert.False(t, wizard.CanAdvance(flow, session))

	session.Draft.CustomGoal = "   "
	assert.False(t, wizard.CanAdvance(flow, session), "whitespace custom goal doesn't count")

	session.Draft.CustomGoal = "is the pacing right?"
	assert.True(t, wizard.CanAdvance(flow, session))

	session.Draft.CustomGoal = ""
	session.Draft.FeedbackGoals = []string{"composition"}
	assert.True(t, wizard.CanAdvance(flow, session))
}

func TestCanAdvance_SlotsStep_Bounds(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)
	session.CurrentStep = 6

	cases := []struct {
		reviewType wizard.ReviewType
		count      int
		ok         bool
	}{
		{wizard.ReviewExpert, 11, false},
		{wizard.ReviewExpert, 10, true},
		{wizard.ReviewExpert, 1, true},
		{wizard.ReviewExpert, 0, false},
		{wizard.ReviewFree, 4, false},
		{wizard.ReviewFree, 3, true},
		{wizard.ReviewFree, 1, true},
		{wizard.ReviewFree, 0, false},
	}

	for _, tc := range cases {
		session.Draft.ReviewType = tc.reviewType
		session.Draft.NumberOfReviews = tc.count
		assert.Equal(t, tc.ok, wizard.CanAdvance(flow, session), "%s/%d", tc.reviewType, tc.count)
	}
}

// Switching review type after picking a count is not silently clamped:
// validation fails until the count is corrected.
func TestCanAdvance_SlotsStep_TypeSwitch(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)
	session.CurrentStep = 6

	session.Draft.ReviewType = wizard.ReviewExpert
	session.Draft.NumberOfReviews = 8
	assert.True(t, wizard.CanAdvance(flow, session))

	session.Draft.ReviewType = wizard.ReviewFree
	assert.False(t, wizard.CanAdvance(flow, session))
	assert.Equal(t, 8, session.Draft.NumberOfReviews, "count is never clamped")

	session.Draft.NumberOfReviews = 2
	assert.True(t, wizard.CanAdvance(flow, session))
}

func TestCanAdvance_PreviewAlwaysPasses(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)
	session.CurrentStep = 7

	assert.True(t, wizard.CanAdvance(flow, session), "arrival already validated everything")
}

// A step's validity depends only on its own fields, regardless of the
// state of fields belonging to other steps.
func TestCanAdvance_IndependentOfOtherSteps(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)
	session := newActiveSession(t, wizard.VariantClassic7)

	// Fill everything except the current step's field.
	session.Draft.Title = "A solid title"
	session.Draft.Description = "A description long enough to pass."
	session.Draft.ExternalLinks = []string{"https://example.com"}
	session.Draft.FeedbackGoals = []string{"clarity"}
	session.Draft.ReviewType = wizard.ReviewFree
	session.Draft.NumberOfReviews = 2

	assert.False(t, wizard.CanAdvance(flow, session), "content type is still unset")

	session.Draft.ContentType = wizard.ContentWriting
	assert.True(t, wizard.CanAdvance(flow, session))
}

func TestCondensed5_DetailsFoldsInGoals(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantCondensed5)
	session := newActiveSession(t, wizard.VariantCondensed5)
	session.CurrentStep = 2

	session.Draft.Title = "My portfolio"
	session.Draft.Description = "Three case studies from last year."
	assert.False(t, wizard.CanAdvance(flow, session), "goals are part of this step")

	session.Draft.FeedbackGoals = []string{"layout"}
	assert.True(t, wizard.CanAdvance(flow, session))
}

func TestCondensed5_ReviewTypeAndSlotsShareAStep(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantCondensed5)
	session := newActiveSession(t, wizard.VariantCondensed5)
	session.CurrentStep = 4

	assert.False(t, wizard.CanAdvance(flow, session))

	session.Draft.ReviewType = wizard.ReviewExpert
	session.Draft.NumberOfReviews = 10
	assert.True(t, wizard.CanAdvance(flow, session))
}

func TestRevised7_GoalsComeBeforeDetails(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantRevised7)

	assert.Equal(t, wizard.StepGoals, flow.StepAt(2).ID)
	assert.Equal(t, wizard.StepDetails, flow.StepAt(3).ID)
	assert.True(t, flow.StepAt(3).CreatesDraft)
}

func TestDefaultDurations(t *testing.T) {
	assert.Equal(t, 10, wizard.DefaultDurationMinutes[wizard.TierQuick])
	assert.Equal(t, 20, wizard.DefaultDurationMinutes[wizard.TierStandard])
	assert.Equal(t, 45, wizard.DefaultDurationMinutes[wizard.TierDeep])
}

func TestQuotaExhausted(t *testing.T) {
	assert.True(t, wizard.Quota{ReviewsRemaining: 0}.Exhausted())
	assert.False(t, wizard.Quota{ReviewsRemaining: 1}.Exhausted())
	assert.False(t, wizard.Quota{HasUnlimitedReviews: true}.Exhausted())
}

func TestNewSession_BlockedOnExhaustedQuota(t *testing.T) {
	session := wizard.NewSession(uuid.New(), wizard.VariantClassic7, wizard.Quota{ReviewsRemaining: 0})
	assert.Equal(t, wizard.StateBlocked, session.State)
}

func TestEncouragementFor(t *testing.T) {
	assert.NotEmpty(t, wizard.EncouragementFor(wizard.StepContentType))
	assert.Empty(t, wizard.EncouragementFor(wizard.StepPreview))
}

func TestDraftGoals(t *testing.T) {
	d := wizard.Draft{FeedbackGoals: []string{"color", "type"}, CustomGoal: "  hierarchy  "}
	assert.Equal(t, []string{"color", "type", "hierarchy"}, d.Goals())

	d = wizard.Draft{}
	assert.Empty(t, d.Goals())
}

func TestValidateDraft(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)

	d := wizard.Draft{
		ContentType:     wizard.ContentCode,
		Title:           "CLI tool",
		Description:     "Looking for feedback on the flag layout.",
		ExternalLinks:   []string{"https://example.com/repo"},
		FeedbackGoals:   []string{"api design"},
		ReviewType:      wizard.ReviewFree,
		NumberOfReviews: 2,
	}
	assert.Empty(t, wizard.ValidateDraft(flow, &d))

	d.NumberOfReviews = 11
	fields := wizard.ValidateDraft(flow, &d)
	require.Len(t, fields, 1)
	assert.Equal(t, "number_of_reviews", fields[0].Field)
}

func TestValidateDraft_OneErrorPerField(t *testing.T) {
	flow, _ := wizard.FlowFor(wizard.VariantClassic7)

	// An empty draft trips the review-type gate on two steps; it must be
	// reported once.
	var d wizard.Draft
	seen := make(map[string]int)
	for _, fe := range wizard.ValidateDraft(flow, &d) {
		seen[fe.Field]++
	}
	for field, n := range seen {
		assert.Equal(t, 1, n, "field %s", field)
	}
	assert.Contains(t, seen, "content_type")
	assert.Contains(t, seen, "review_type")
}
