// Package grading turns the scorer's free-form assessment text into a
// bounded grade multiplier and an integrity signal.
package grading

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MinMultiplier and MaxMultiplier bound every stored grade.
	MinMultiplier = 0.90
	MaxMultiplier = 1.05

	// IntegrityPrefix marks grade comments for defenses that suggest the
	// student may not have authored or understood the essay.
	IntegrityPrefix = "[INTEGRITY FLAG] "

	// minElementScores is how many rubric score mentions the fallback
	// computation requires before trusting them.
	minElementScores = 4
)

// Result is the structured outcome of parsing a scorer response.
type Result struct {
	Multiplier    float64
	IntegrityFlag bool
	Comments      string
	ParseFailed   bool
}

// Ordered declaration patterns. The first numeric capture wins.
var declarationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:final|grade|multiplier)\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)average\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*(?:final|average|overall)`),
}

var elementScorePattern = regexp.MustCompile(`(?i)(?:score|rating)\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)`)

// Parse extracts a multiplier and integrity flag from scorer output.
//
// Resolution order: an explicit declaration line, then the mean of at least
// four rubric element scores pushed through the canonical formula, then a
// neutral 1.00 with ParseFailed set. The integrity flag is computed from the
// rubric element scores whenever any are present, independent of which path
// produced the multiplier.
func Parse(text string) Result {
	result := Result{Comments: strings.TrimSpace(text)}
	elements := elementScores(text)
	result.IntegrityFlag = integrityFlag(elements)

	multiplier, ok := declaredMultiplier(text)
	switch {
	case ok:
		result.Multiplier = clampMultiplier(multiplier)
	case len(elements) >= minElementScores:
		result.Multiplier = MultiplierFromElements(elements)
	default:
		result.Multiplier = 1.00
		result.ParseFailed = true
	}

	if result.IntegrityFlag {
		result.Comments = IntegrityPrefix + result.Comments
	}
	return result
}

// MultiplierFromElements applies the canonical formula to raw rubric element
// scores: clamp(1.00 + (mean − 3) × 0.05, 0.90, 1.05), rounded to two decimal
// places. This recomputation is authoritative even when the scorer's own
// arithmetic disagrees.
func MultiplierFromElements(elements []float64) float64 {
	if len(elements) == 0 {
		return 1.00
	}
	var sum float64
	for _, score := range elements {
		sum += score
	}
	mean := sum / float64(len(elements))
	return clampMultiplier(1.00 + (mean-3)*0.05)
}

func declaredMultiplier(text string) (float64, bool) {
	for _, pattern := range declarationPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return value, true
	}
	return 0, false
}

func elementScores(text string) []float64 {
	matches := elementScorePattern.FindAllStringSubmatch(text, -1)
	scores := make([]float64, 0, len(matches))
	for _, match := range matches {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		scores = append(scores, value)
	}
	return scores
}

// integrityFlag is raised when any rubric element score equals 1, or when at
// least four elements average 1.5 or lower.
func integrityFlag(elements []float64) bool {
	if len(elements) == 0 {
		return false
	}
	var sum float64
	for _, score := range elements {
		if score == 1 {
			return true
		}
		sum += score
	}
	if len(elements) < minElementScores {
		return false
	}
	return sum/float64(len(elements)) <= 1.5
}

func clampMultiplier(value float64) float64 {
	if value < MinMultiplier {
		value = MinMultiplier
	}
	if value > MaxMultiplier {
		value = MaxMultiplier
	}
	return math.Round(value*100) / 100
}
