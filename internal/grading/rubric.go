package grading

import (
	"fmt"
	"strings"
)

// Four rubric elements: two scored 1-5, two scored 1-3.
const rubricText = `Assess the oral defense transcript against the essay using four rubric elements:

1. Content understanding (score: 1-5) - does the student demonstrate command of the essay's argument and evidence?
2. Depth of reasoning (score: 1-5) - can the student extend, qualify, or defend the argument beyond what is written?
3. Consistency with essay (score: 1-3) - do the student's spoken claims match what the essay says?
4. Communication (score: 1-3) - does the student answer the questions asked, clearly?

For each element write a line "Score: N" with a short justification.
Then write a final line "Multiplier: N" where N = 1.00 + (mean of the four scores - 3) * 0.05, kept within [0.90, 1.05].
If the transcript suggests the student did not author or does not understand the essay, say so explicitly.`

// ScorerPrompt builds the full grading request sent to the AI scorer.
func ScorerPrompt(essayText, transcript string) string {
	var b strings.Builder
	b.WriteString("You are grading an oral defense of a student essay.\n\n")
	b.WriteString(rubricText)
	b.WriteString("\n\n--- ESSAY START ---\n")
	b.WriteString(essayText)
	b.WriteString("\n--- ESSAY END ---\n\n--- TRANSCRIPT START ---\n")
	b.WriteString(transcript)
	b.WriteString("\n--- TRANSCRIPT END ---\n")
	return b.String()
}

// FormatMultiplier renders a multiplier the way it is displayed everywhere.
func FormatMultiplier(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
