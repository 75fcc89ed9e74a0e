package models

// UpdateDraftRequest is a partial update of the session draft. Pointer
// fields distinguish "not sent" from "set to zero value"; only fields
// present in the body are merged.
type UpdateDraftRequest struct {
	ContentType        *string   `json:"content_type"`
	ContentSubcategory *string   `json:"content_subcategory"`
	Title              *string   `json:"title"`
	Description        *string   `json:"description"`
	ExternalLinks      *[]string `json:"external_links"`
	FeedbackGoals      *[]string `json:"feedback_goals"`
	CustomGoal         *string   `json:"custom_goal"`
	ReviewType         *string   `json:"review_type"`
	Tier               *string   `json:"tier"`
	FeedbackPriority   *string   `json:"feedback_priority"`
	SpecificQuestions  *string   `json:"specific_questions"`
	Context            *string   `json:"context"`
	EstimatedDuration  *int      `json:"estimated_duration"`
	RequiresNDA        *bool     `json:"requires_nda"`
	Budget             *float64  `json:"budget"`
	NumberOfReviews    *int      `json:"number_of_reviews"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
