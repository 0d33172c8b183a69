// Package api defines the JSON payloads exchanged over the HTTP API.
package api

import (
	"time"

	"viva/internal/store"
)

// Submission is the wire representation of a stored submission.
type Submission struct {
	ID                  int64            `json:"id"`
	SessionID           string           `json:"session_id"`
	StudentName         string           `json:"student_name"`
	Status              string           `json:"status"`
	Questions           []store.Question `json:"questions,omitempty"`
	Transcript          string           `json:"transcript,omitempty"`
	ConversationID      string           `json:"conversation_id,omitempty"`
	CallDurationSeconds int              `json:"call_duration_seconds,omitempty"`
	GradeMultiplier     float64          `json:"grade_multiplier,omitempty"`
	GradeComments       string           `json:"grade_comments,omitempty"`
	InstructorNotes     string           `json:"instructor_notes,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	DefenseStartedAt    *time.Time       `json:"defense_started_at,omitempty"`
	DefenseEndedAt      *time.Time       `json:"defense_ended_at,omitempty"`
}

// FromSubmission converts a store record to its wire form. The essay is
// deliberately omitted from list payloads; detail responses attach it
// separately.
func FromSubmission(sub *store.Submission) Submission {
	return Submission{
		ID:                  sub.ID,
		SessionID:           sub.SessionID,
		StudentName:         sub.StudentName,
		Status:              string(sub.Status),
		Questions:           sub.Questions,
		Transcript:          sub.Transcript,
		ConversationID:      sub.ConversationID,
		CallDurationSeconds: sub.CallDurationSeconds,
		GradeMultiplier:     sub.GradeMultiplier,
		GradeComments:       sub.GradeComments,
		InstructorNotes:     sub.InstructorNotes,
		CreatedAt:           sub.CreatedAt,
		UpdatedAt:           sub.UpdatedAt,
		DefenseStartedAt:    sub.DefenseStartedAt,
		DefenseEndedAt:      sub.DefenseEndedAt,
	}
}

// IntakeRequest creates a submission.
type IntakeRequest struct {
	StudentName string `json:"student_name"`
	EssayText   string `json:"essay_text"`
}

// IntakeResponse returns the prompt material the voice session needs.
type IntakeResponse struct {
	SessionID    string           `json:"session_id"`
	Questions    []store.Question `json:"questions"`
	Prompt       string           `json:"prompt"`
	FirstMessage string           `json:"first_message"`
}

// WebhookTurn is one transcript turn in a webhook delivery.
type WebhookTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// WebhookRequest is the transcript payload pushed by the voice provider.
type WebhookRequest struct {
	ConversationID      string            `json:"conversation_id"`
	SessionID           string            `json:"session_id,omitempty"`
	CallDurationSeconds int               `json:"call_duration_seconds"`
	Transcript          []WebhookTurn     `json:"transcript"`
	DynamicVariables    map[string]string `json:"dynamic_variables,omitempty"`
}

// WebhookResponse reports how a delivery was handled.
type WebhookResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Method    string `json:"method,omitempty"`
	Applied   bool   `json:"applied"`
}

// StartDefenseRequest marks a submission's voice session as underway. The
// conversation id is optional; the webhook backfills it when absent.
type StartDefenseRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

// StartDefenseResponse reports the status after the call-started signal.
type StartDefenseResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// SubmissionListResponse wraps the listing endpoint payload.
type SubmissionListResponse struct {
	Submissions []Submission `json:"submissions"`
}

// SubmissionDetailResponse wraps a single submission with its essay.
type SubmissionDetailResponse struct {
	Submission Submission `json:"submission"`
	EssayText  string     `json:"essay_text"`
}

// ToggleExcludedResponse reports the status after a manual override.
type ToggleExcludedResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ReviewRequest marks a submission reviewed, optionally attaching notes.
type ReviewRequest struct {
	Notes string `json:"notes,omitempty"`
}

// GradeRequest grades one submission when SessionID is set, otherwise all
// eligible submissions.
type GradeRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// GradeResponse summarizes a grading run.
type GradeResponse struct {
	Graded int `json:"graded"`
	Failed int `json:"failed"`
}

// RecoverResponse summarizes a recovery sweep.
type RecoverResponse struct {
	Scanned   int `json:"scanned"`
	Recovered int `json:"recovered"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
}

// StatusResponse reports daemon runtime state and submission counts.
type StatusResponse struct {
	Running         bool   `json:"running"`
	PID             int    `json:"pid"`
	DBPath          string `json:"db_path"`
	LockFilePath    string `json:"lock_file_path"`
	Total           int    `json:"total"`
	Open            int    `json:"open"`
	DefenseComplete int    `json:"defense_complete"`
	Excluded        int    `json:"excluded"`
	Graded          int    `json:"graded"`
	Reviewed        int    `json:"reviewed"`
}
