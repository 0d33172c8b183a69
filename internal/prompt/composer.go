// Package prompt renders the examiner system prompt and opening
// utterance for a defense session. Rendering is a pure function of its
// inputs: identical submissions always produce byte-identical prompts.
package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"viva/internal/logging"
	"viva/internal/store"
)

const (
	personalityTemplateName  = "personality.tmpl"
	flowTemplateName         = "flow.tmpl"
	firstMessageTemplateName = "first_message.tmpl"
)

// Composer renders defense prompts from a personality template, a flow
// template, and the frozen question set.
type Composer struct {
	personality  *template.Template
	flow         *template.Template
	firstMessage *template.Template
}

// Input carries everything the system prompt embeds.
type Input struct {
	StudentName string
	EssayText   string
	Questions   []store.Question
}

// NewComposer loads templates from templateDir, falling back to the built-in
// defaults when a named template is missing or malformed. A fallback is a
// warning, never an error: submission intake must not fail on template
// problems.
func NewComposer(templateDir string, logger *slog.Logger) (*Composer, error) {
	log := logging.NewComponentLogger(logger, "prompt-composer")

	personality, err := loadTemplate(templateDir, personalityTemplateName, defaultPersonalityTemplate, log)
	if err != nil {
		return nil, err
	}
	flow, err := loadTemplate(templateDir, flowTemplateName, defaultFlowTemplate, log)
	if err != nil {
		return nil, err
	}
	firstMessage, err := loadTemplate(templateDir, firstMessageTemplateName, defaultFirstMessageTemplate, log)
	if err != nil {
		return nil, err
	}

	return &Composer{
		personality:  personality,
		flow:         flow,
		firstMessage: firstMessage,
	}, nil
}

func loadTemplate(dir, name, fallback string, log *slog.Logger) (*template.Template, error) {
	if strings.TrimSpace(dir) != "" {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			tmpl, parseErr := template.New(name).Parse(string(data))
			if parseErr == nil {
				return tmpl, nil
			}
			log.Warn("template failed to parse; using built-in default",
				logging.String("template", name),
				logging.Error(parseErr),
				logging.String(logging.FieldEventType, "template_fallback"),
			)
		case os.IsNotExist(err):
			log.Warn("template not found; using built-in default",
				logging.String("template", path),
				logging.String(logging.FieldEventType, "template_fallback"),
			)
		default:
			log.Warn("template unreadable; using built-in default",
				logging.String("template", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "template_fallback"),
			)
		}
	}
	tmpl, err := template.New(name).Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("parse built-in template %s: %w", name, err)
	}
	return tmpl, nil
}

// SystemPrompt renders the examiner system prompt: persona, examination flow,
// the essay verbatim, then the numbered question list in selection order.
func (c *Composer) SystemPrompt(in Input) (string, error) {
	var b strings.Builder

	if err := c.personality.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render personality: %w", err)
	}
	b.WriteString("\n\n")

	if err := c.flow.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render flow: %w", err)
	}
	b.WriteString("\n\n")

	b.WriteString("The student's essay follows between the markers.\n")
	b.WriteString("--- ESSAY START ---\n")
	b.WriteString(in.EssayText)
	b.WriteString("\n--- ESSAY END ---\n\n")

	b.WriteString("Ask these questions, in order:\n")
	for i, q := range in.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Text)
	}

	return b.String(), nil
}

// FirstMessage renders the opening utterance for the voice session.
func (c *Composer) FirstMessage(studentName string) (string, error) {
	var b strings.Builder
	if err := c.firstMessage.Execute(&b, Input{StudentName: studentName}); err != nil {
		return "", fmt.Errorf("render first message: %w", err)
	}
	return b.String(), nil
}
