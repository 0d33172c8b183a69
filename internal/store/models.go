package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a submission.
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusDefenseStarted  Status = "defense_started"
	StatusDefenseComplete Status = "defense_complete"
	StatusExcluded        Status = "excluded"
	StatusGraded          Status = "graded"
	StatusReviewed        Status = "reviewed"
)

var allStatuses = []Status{
	StatusSubmitted,
	StatusDefenseStarted,
	StatusDefenseComplete,
	StatusExcluded,
	StatusGraded,
	StatusReviewed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// openStatuses are the statuses still waiting for a defense transcript.
var openStatuses = map[Status]struct{}{
	StatusSubmitted:      {},
	StatusDefenseStarted: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsOpen reports whether a status still awaits a defense transcript.
func IsOpen(status Status) bool {
	_, ok := openStatuses[status]
	return ok
}

// Question is a single defense question frozen at submission time.
type Question struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Submission represents one student essay and its defense lifecycle.
type Submission struct {
	ID                  int64
	SessionID           string
	StudentName         string
	EssayText           string
	Questions           []Question
	Status              Status
	Transcript          string
	ConversationID      string
	CallDurationSeconds int
	GradeMultiplier     float64
	GradeComments       string
	InstructorNotes     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DefenseStartedAt    *time.Time
	DefenseEndedAt      *time.Time
}

// IsOpen reports whether the submission still awaits a defense transcript.
func (s Submission) IsOpen() bool {
	return IsOpen(s.Status)
}

// HasTranscript reports whether a defense transcript has been attached.
func (s Submission) HasTranscript() bool {
	return strings.TrimSpace(s.Transcript) != ""
}

// HealthSummary describes aggregated submission counts per lifecycle state.
type HealthSummary struct {
	Total           int
	Open            int
	DefenseComplete int
	Excluded        int
	Graded          int
	Reviewed        int
}
