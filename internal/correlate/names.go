package correlate

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// introPattern matches a self-introduction in a student turn and captures a
// one- or two-token capitalized name. The phrase is case-insensitive and must
// start on a word boundary so "semi am" cannot match; the captured tokens
// must be capitalized so that "I'm ready" does not read as a name.
var introPattern = regexp.MustCompile(`\b(?i:my name is|my name's|i am|i'm|this is)\s+([A-Z][A-Za-z'\-]*(?:\s+[A-Z][A-Za-z'\-]*)?)`)

var nameCaser = cases.Title(language.English, cases.NoLower)

// ExtractIntroducedName scans student turns for a self-introduction and
// returns the normalized name from the first one found. Returns the empty
// string when no turn introduces a name.
func ExtractIntroducedName(turns []Turn) string {
	for _, turn := range turns {
		if !isStudentTurn(turn) {
			continue
		}
		match := introPattern.FindStringSubmatch(turn.Message)
		if match == nil {
			continue
		}
		if name := NormalizeName(match[1]); name != "" {
			return name
		}
	}
	return ""
}

// NormalizeName collapses whitespace and title-cases each token so that
// extracted and stored names compare consistently.
func NormalizeName(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return nameCaser.String(strings.Join(fields, " "))
}
