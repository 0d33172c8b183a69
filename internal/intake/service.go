// Package intake creates submissions: it validates the essay, mints the
// session identifier, freezes the question set, and composes the defense
// prompt handed to the voice session.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"viva/internal/logging"
	"viva/internal/prompt"
	"viva/internal/questions"
	"viva/internal/services"
	"viva/internal/store"
)

// Service handles submission creation.
type Service struct {
	store    *store.Store
	bank     questions.Bank
	selector *questions.Selector
	composer *prompt.Composer

	maxEssayChars    int
	contentQuestions int
	processQuestions int

	logger *slog.Logger
}

// Result carries everything a new submission hands back to the portal:
// the persisted record plus the rendered prompt material for the voice
// session.
type Result struct {
	Submission   *store.Submission
	Prompt       string
	FirstMessage string
}

// NewService wires the intake pipeline.
func NewService(
	st *store.Store,
	bank questions.Bank,
	selector *questions.Selector,
	composer *prompt.Composer,
	maxEssayChars, contentQuestions, processQuestions int,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:            st,
		bank:             bank,
		selector:         selector,
		composer:         composer,
		maxEssayChars:    maxEssayChars,
		contentQuestions: contentQuestions,
		processQuestions: processQuestions,
		logger:           logging.NewComponentLogger(logger, "intake"),
	}
}

// Create validates and persists a new submission. The question set selected
// here is frozen: it is stored with the record and never reselected.
func (s *Service) Create(ctx context.Context, studentName, essayText string) (*Result, error) {
	studentName = strings.TrimSpace(studentName)
	if studentName == "" {
		return nil, services.Wrap(services.ErrValidation, "intake", "create",
			"student name is required", nil)
	}
	if strings.TrimSpace(essayText) == "" {
		return nil, services.Wrap(services.ErrValidation, "intake", "create",
			"essay text is required", nil)
	}
	if length := len([]rune(essayText)); s.maxEssayChars > 0 && length > s.maxEssayChars {
		return nil, services.Wrap(services.ErrValidation, "intake", "create",
			fmt.Sprintf("essay exceeds maximum length: limit %d characters, got %d", s.maxEssayChars, length), nil)
	}

	sessionID := uuid.NewString()
	selected := s.selector.Select(s.bank, s.contentQuestions, s.processQuestions)
	if len(selected) == 0 {
		return nil, services.Wrap(services.ErrValidation, "intake", "create",
			"question bank produced no questions", nil)
	}

	systemPrompt, err := s.composer.SystemPrompt(prompt.Input{
		StudentName: studentName,
		EssayText:   essayText,
		Questions:   selected,
	})
	if err != nil {
		return nil, fmt.Errorf("compose system prompt: %w", err)
	}
	firstMessage, err := s.composer.FirstMessage(studentName)
	if err != nil {
		return nil, fmt.Errorf("compose first message: %w", err)
	}

	sub, err := s.store.Create(ctx, sessionID, studentName, essayText, selected)
	if err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	s.logger.Info("submission created",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("student_name", studentName),
		logging.Int("questions", len(selected)),
	)

	return &Result{
		Submission:   sub,
		Prompt:       systemPrompt,
		FirstMessage: firstMessage,
	}, nil
}
