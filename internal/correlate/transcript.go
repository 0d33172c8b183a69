package correlate

import (
	"strings"
)

// Turn is one utterance in a voice conversation.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

const (
	speakerExaminer = "EXAMINER"
	speakerStudent  = "STUDENT"
)

// speakerLabel maps provider role names onto the two-speaker labels used in
// stored transcripts. Unknown roles are attributed to the student so nothing
// a student said can hide under an unexpected label.
func speakerLabel(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "agent", "assistant", "examiner", "ai":
		return speakerExaminer
	default:
		return speakerStudent
	}
}

// isStudentTurn reports whether a turn is attributed to the student.
func isStudentTurn(t Turn) bool {
	return speakerLabel(t.Role) == speakerStudent
}

// FormatTranscript renders conversation turns into the readable two-speaker
// log stored on the submission. Empty messages are dropped; turns are
// separated by blank lines.
func FormatTranscript(turns []Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		message := strings.TrimSpace(turn.Message)
		if message == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(speakerLabel(turn.Role))
		b.WriteString(": ")
		b.WriteString(message)
	}
	return b.String()
}
