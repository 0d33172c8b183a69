package prompt_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"viva/internal/logging"
	"viva/internal/prompt"
	"viva/internal/store"
)

func testInput() prompt.Input {
	return prompt.Input{
		StudentName: "Jane Doe",
		EssayText:   "The essay argues that rivers shaped early trade routes.",
		Questions: []store.Question{
			{Category: "content", Text: "What is your central argument?"},
			{Category: "content", Text: "Which evidence is strongest?"},
			{Category: "process", Text: "How did you plan the essay?"},
		},
	}
}

func TestSystemPromptIsDeterministic(t *testing.T) {
	composer, err := prompt.NewComposer("", logging.NewNop())
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}

	first, err := composer.SystemPrompt(testInput())
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	second, err := composer.SystemPrompt(testInput())
	if err != nil {
		t.Fatalf("SystemPrompt second render: %v", err)
	}
	if first != second {
		t.Fatal("identical inputs produced different prompts")
	}
}

func TestSystemPromptStructure(t *testing.T) {
	composer, err := prompt.NewComposer("", logging.NewNop())
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}

	rendered, err := composer.SystemPrompt(testInput())
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}

	if !strings.Contains(rendered, "Jane Doe") {
		t.Fatal("prompt missing student name")
	}
	if !strings.Contains(rendered, "--- ESSAY START ---") || !strings.Contains(rendered, "--- ESSAY END ---") {
		t.Fatal("prompt missing essay markers")
	}
	if !strings.Contains(rendered, "rivers shaped early trade routes") {
		t.Fatal("prompt missing essay text verbatim")
	}

	// Questions appear numbered, in selection order.
	first := strings.Index(rendered, "1. What is your central argument?")
	second := strings.Index(rendered, "2. Which evidence is strongest?")
	third := strings.Index(rendered, "3. How did you plan the essay?")
	if first < 0 || second < first || third < second {
		t.Fatalf("question list out of order: %d/%d/%d", first, second, third)
	}
}

func TestFirstMessageSubstitutesName(t *testing.T) {
	composer, err := prompt.NewComposer("", logging.NewNop())
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	message, err := composer.FirstMessage("Jane Doe")
	if err != nil {
		t.Fatalf("FirstMessage: %v", err)
	}
	if !strings.Contains(message, "Jane Doe") {
		t.Fatalf("first message missing name: %q", message)
	}
}

func TestTemplateOverride(t *testing.T) {
	dir := t.TempDir()
	override := "Custom persona for {{.StudentName}}."
	if err := os.WriteFile(filepath.Join(dir, "personality.tmpl"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	composer, err := prompt.NewComposer(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	rendered, err := composer.SystemPrompt(testInput())
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if !strings.Contains(rendered, "Custom persona for Jane Doe.") {
		t.Fatal("override template not used")
	}
}

func TestMalformedTemplateFallsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "personality.tmpl"), []byte("{{.Broken"), 0o644); err != nil {
		t.Fatalf("write broken template: %v", err)
	}

	// A malformed override is a warning, never an intake failure.
	composer, err := prompt.NewComposer(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("NewComposer should fall back, got: %v", err)
	}
	rendered, err := composer.SystemPrompt(testInput())
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if !strings.Contains(rendered, "Professor Ellis") {
		t.Fatal("built-in default not used after malformed override")
	}
}
