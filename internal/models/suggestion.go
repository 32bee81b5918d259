package models

import (
	"fmt"
	"time"
)

// Suggestion statuses. A suggestion is created pending and transitions
// exactly once to one of the terminal states.
const (
	SuggestionPending  = "pending"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
	SuggestionModified = "modified"
)

// ReviewAction is the human decision on a suggestion.
type ReviewAction string

const (
	ActionAccept ReviewAction = "accept"
	ActionReject ReviewAction = "reject"
	ActionModify ReviewAction = "modify"
)

// ParseReviewAction validates a wire action string.
func ParseReviewAction(s string) (ReviewAction, error) {
	switch ReviewAction(s) {
	case ActionAccept, ActionReject, ActionModify:
		return ReviewAction(s), nil
	default:
		return "", fmt.Errorf("unknown review action %q", s)
	}
}

// Status returns the terminal suggestion status for the action.
func (a ReviewAction) Status() string {
	switch a {
	case ActionAccept:
		return SuggestionAccepted
	case ActionReject:
		return SuggestionRejected
	case ActionModify:
		return SuggestionModified
	default:
		return ""
	}
}

// Suggestion is a proposed label correction derived from a detection.
type Suggestion struct {
	ID          int64 `db:"id" json:"id"`
	DetectionID int64 `db:"detection_id" json:"detection_id"`

	SuggestedLabel int     `db:"suggested_label" json:"suggested_label"`
	Reason         string  `db:"reason" json:"reason"`
	Confidence     float64 `db:"confidence" json:"confidence"`

	Status string `db:"status" json:"status"`

	// Set only when a reviewer modified the suggestion.
	CustomLabel   *int    `db:"custom_label" json:"custom_label,omitempty"`
	ReviewerNotes *string `db:"reviewer_notes" json:"reviewer_notes,omitempty"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// Feedback is the immutable audit record of one review decision. It is
// append-only and the sole input to correction application.
type Feedback struct {
	ID           int64 `db:"id" json:"id"`
	SuggestionID int64 `db:"suggestion_id" json:"suggestion_id"`
	SampleID     int64 `db:"sample_id" json:"sample_id"`
	DatasetID    int64 `db:"dataset_id" json:"dataset_id"`
	Iteration    int   `db:"iteration" json:"iteration"`

	Action string `db:"action" json:"action"`

	// Label the correction applier will set: suggested_label for
	// accept, the sample's current label for reject, custom_label for
	// modify.
	FinalLabel int `db:"final_label" json:"final_label"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
