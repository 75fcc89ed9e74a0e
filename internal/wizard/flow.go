package wizard

import "fmt"

// Variant selects which iteration of the creation flow is active. All
// three share one sequencer; only the step tables differ.
type Variant string

const (
	// VariantClassic7 is the original seven step flow.
	VariantClassic7 Variant = "classic7"
	// VariantCondensed5 folds goals into the details step and merges
	// review type with slot selection.
	VariantCondensed5 Variant = "condensed5"
	// VariantRevised7 asks for goals before the title and description.
	VariantRevised7 Variant = "revised7"
)

// StepID names a wizard step independent of its position in a variant.
type StepID string

const (
	StepContentType     StepID = "content_type"
	StepDetails         StepID = "details"
	StepDetailsGoals    StepID = "details_goals"
	StepUploads         StepID = "uploads"
	StepGoals           StepID = "goals"
	StepReviewType      StepID = "review_type"
	StepSlots           StepID = "slots"
	StepReviewTypeSlots StepID = "review_type_slots"
	StepPreview         StepID = "preview"
)

// Step is one entry in a flow's ordered step table.
type Step struct {
	ID       StepID
	Validate func(d *Draft) []FieldError
	// CreatesDraft marks the step whose completion first persists the
	// draft on the marketplace. Exactly one step per flow carries it.
	CreatesDraft bool
}

// Flow is the ordered step table for one variant.
type Flow struct {
	Variant Variant
	Steps   []Step
}

// TotalSteps returns the number of steps in the flow.
func (f *Flow) TotalSteps() int {
	return len(f.Steps)
}

// StepAt returns the step at a 1-based index.
func (f *Flow) StepAt(step int) Step {
	return f.Steps[step-1]
}

var flows = map[Variant]*Flow{
	VariantClassic7: {
		Variant: VariantClassic7,
		Steps: []Step{
			{ID: StepContentType, Validate: validateContentType},
			{ID: StepDetails, Validate: validateDetails, CreatesDraft: true},
			{ID: StepUploads, Validate: validateUploads},
			{ID: StepGoals, Validate: validateGoals},
			{ID: StepReviewType, Validate: validateReviewType},
			{ID: StepSlots, Validate: validateSlots},
			{ID: StepPreview, Validate: validatePreview},
		},
	},
	VariantCondensed5: {
		Variant: VariantCondensed5,
		Steps: []Step{
			{ID: StepContentType, Validate: validateContentType},
			{ID: StepDetailsGoals, Validate: validateDetailsGoals, CreatesDraft: true},
			{ID: StepUploads, Validate: validateUploads},
			{ID: StepReviewTypeSlots, Validate: validateReviewTypeSlots},
			{ID: StepPreview, Validate: validatePreview},
		},
	},
	VariantRevised7: {
		Variant: VariantRevised7,
		Steps: []Step{
			{ID: StepContentType, Validate: validateContentType},
			{ID: StepGoals, Validate: validateGoals},
			{ID: StepDetails, Validate: validateDetails, CreatesDraft: true},
			{ID: StepUploads, Validate: validateUploads},
			{ID: StepReviewType, Validate: validateReviewType},
			{ID: StepSlots, Validate: validateSlots},
			{ID: StepPreview, Validate: validatePreview},
		},
	},
}

// FlowFor returns the step table for a variant.
func FlowFor(variant Variant) (*Flow, error) {
	flow, ok := flows[variant]
	if !ok {
		return nil, fmt.Errorf("unknown wizard variant: %q", variant)
	}
	return flow, nil
}

// KnownVariant reports whether the variant names a configured flow.
func KnownVariant(variant Variant) bool {
	_, ok := flows[variant]
	return ok
}

// CanAdvance reports whether the session's current step is complete.
// Pure function of the session state.
func CanAdvance(flow *Flow, s *Session) bool {
	return len(ValidateStep(flow, s)) == 0
}

// ValidateStep evaluates the current step's predicate against the draft
// and returns the field errors, empty when the step is complete.
func ValidateStep(flow *Flow, s *Session) []FieldError {
	return flow.StepAt(s.CurrentStep).Validate(&s.Draft)
}

// ValidateDraft runs every step's predicate against the draft, one error
// per field. Draft fields are patchable at any step, so publishing gates
// on the whole flow, not just the step the creator is standing on.
func ValidateDraft(flow *Flow, d *Draft) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool)
	for _, step := range flow.Steps {
		for _, fe := range step.Validate(d) {
			if seen[fe.Field] {
				continue
			}
			seen[fe.Field] = true
			errs = append(errs, fe)
		}
	}
	return errs
}

// Encouragement messages shown after leaving a step. Cosmetic; clients
// expire them after a few seconds.
var encouragements = map[StepID]string{
	StepContentType:     "Great choice! Let's tell reviewers about your work.",
	StepDetails:         "Looking good! Now share the work itself.",
	StepDetailsGoals:    "Looking good! Now share the work itself.",
	StepUploads:         "Nice! Your work is ready for review.",
	StepGoals:           "Clear goals get you better feedback.",
	StepReviewType:      "Almost there!",
	StepSlots:           "One last look before you publish.",
	StepReviewTypeSlots: "One last look before you publish.",
}

// EncouragementFor returns the transient message for the step just left,
// or an empty string when there is none.
func EncouragementFor(id StepID) string {
	return encouragements[id]
}
