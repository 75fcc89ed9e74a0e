package wizard

import (
	"fmt"
	"strings"
)

// Minimum lengths for the details step, matching the marketplace's own
// server-side rules.
const (
	MinTitleLength       = 3
	MinDescriptionLength = 10
)

// FieldError describes why a step field blocks advancing.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

func validateContentType(d *Draft) []FieldError {
	if d.ContentType == "" {
		return []FieldError{{Field: "content_type", Message: "select a content type"}}
	}
	return nil
}

func validateDetails(d *Draft) []FieldError {
	var errs []FieldError
	if len(trimmed(d.Title)) < MinTitleLength {
		errs = append(errs, FieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at least %d characters", MinTitleLength),
		})
	}
	if len(trimmed(d.Description)) < MinDescriptionLength {
		errs = append(errs, FieldError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at least %d characters", MinDescriptionLength),
		})
	}
	return errs
}

func validateDetailsGoals(d *Draft) []FieldError {
	errs := validateDetails(d)
	if !d.HasGoals() {
		errs = append(errs, FieldError{Field: "feedback_goals", Message: "select at least one feedback goal"})
	}
	return errs
}

func validateUploads(d *Draft) []FieldError {
	if !d.HasWork() {
		return []FieldError{{Field: "uploaded_files", Message: "add at least one file or external link"}}
	}
	return nil
}

func validateGoals(d *Draft) []FieldError {
	if !d.HasGoals() {
		return []FieldError{{Field: "feedback_goals", Message: "select at least one feedback goal"}}
	}
	return nil
}

func validateReviewType(d *Draft) []FieldError {
	switch d.ReviewType {
	case ReviewFree, ReviewExpert:
		return nil
	}
	return []FieldError{{Field: "review_type", Message: "choose a review type"}}
}

// Slot counts are validated, never clamped: switching review type after
// picking a count simply fails here until the count is corrected.
func validateSlots(d *Draft) []FieldError {
	if errs := validateReviewType(d); len(errs) > 0 {
		return errs
	}
	max := MaxReviews(d.ReviewType)
	if d.NumberOfReviews < 1 || d.NumberOfReviews > max {
		return []FieldError{{
			Field:   "number_of_reviews",
			Message: fmt.Sprintf("number of reviews must be between 1 and %d", max),
		}}
	}
	return nil
}

func validateReviewTypeSlots(d *Draft) []FieldError {
	return validateSlots(d)
}

// Arrival at the preview step means every earlier gate already passed.
func validatePreview(d *Draft) []FieldError {
	return nil
}
