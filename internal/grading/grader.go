package grading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"viva/internal/logging"
	"viva/internal/services"
	"viva/internal/store"
)

// Scorer produces a free-form assessment for a grading prompt.
type Scorer interface {
	Score(ctx context.Context, prompt string) (string, error)
}

// Grader runs defenses through the scorer and persists the parsed result.
type Grader struct {
	store  *store.Store
	scorer Scorer
	logger *slog.Logger
}

// NewGrader wires a grader to its store and scorer client.
func NewGrader(st *store.Store, scorer Scorer, logger *slog.Logger) *Grader {
	return &Grader{
		store:  st,
		scorer: scorer,
		logger: logging.NewComponentLogger(logger, "grader"),
	}
}

// Grade scores a single submission. The submission must be in
// defense_complete with a non-empty transcript; anything else is a reported
// error, never a silent skip.
func (g *Grader) Grade(ctx context.Context, sessionID string) (*store.Submission, error) {
	sub, err := g.store.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, services.Wrap(services.ErrNotFound, "grader", "grade",
			fmt.Sprintf("submission %s not found", sessionID), nil)
	}
	if sub.Status != store.StatusDefenseComplete {
		return nil, services.Wrap(services.ErrValidation, "grader", "grade",
			fmt.Sprintf("submission %s is %s, not %s", sessionID, sub.Status, store.StatusDefenseComplete), nil)
	}
	if !sub.HasTranscript() {
		return nil, services.Wrap(services.ErrValidation, "grader", "grade",
			fmt.Sprintf("submission %s has no transcript", sessionID), nil)
	}

	ctx = services.WithSessionID(ctx, sessionID)
	log := logging.WithContext(ctx, g.logger)

	response, err := g.scorer.Score(ctx, ScorerPrompt(sub.EssayText, sub.Transcript))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "grader", "grade", "scorer request failed", err)
	}
	if strings.TrimSpace(response) == "" {
		return nil, services.Wrap(services.ErrExternalService, "grader", "grade", "scorer returned empty response", nil)
	}

	result := Parse(response)
	if result.ParseFailed {
		log.Warn("scorer response had no parseable grade; using neutral multiplier",
			logging.String(logging.FieldEventType, "grade_parse_failure"),
			logging.String(logging.FieldErrorHint, "inspect the stored grade comments and re-run grading"),
		)
	}
	if result.IntegrityFlag {
		log.Warn("integrity flag raised",
			logging.String(logging.FieldEventType, "integrity_flag"),
		)
	}

	applied, err := g.store.SetGrade(ctx, sessionID, result.Multiplier, result.Comments)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, services.Wrap(services.ErrValidation, "grader", "grade",
			fmt.Sprintf("submission %s changed state before the grade could be recorded", sessionID), nil)
	}

	log.Info("submission graded",
		logging.String("multiplier", FormatMultiplier(result.Multiplier)),
		logging.Bool("integrity_flag", result.IntegrityFlag),
	)
	return g.store.GetBySessionID(ctx, sessionID)
}

// BatchOutcome summarizes a GradeEligible run.
type BatchOutcome struct {
	Graded int
	Failed int
}

// GradeEligible grades every submission in defense_complete. Excluded
// submissions are never candidates. Failures are logged and counted; the
// batch continues so one bad transcript cannot block the rest. Safe to
// re-run: already-graded submissions no longer match the eligibility query.
func (g *Grader) GradeEligible(ctx context.Context) (BatchOutcome, error) {
	eligible, err := g.store.List(ctx, store.StatusDefenseComplete)
	if err != nil {
		return BatchOutcome{}, err
	}

	outcome := BatchOutcome{}
	for _, sub := range eligible {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		if _, err := g.Grade(ctx, sub.SessionID); err != nil {
			outcome.Failed++
			g.logger.Error("batch grading failed for submission",
				logging.String(logging.FieldSessionID, sub.SessionID),
				logging.Error(err),
			)
			continue
		}
		outcome.Graded++
	}

	g.logger.Info("batch grading complete",
		logging.Int("graded", outcome.Graded),
		logging.Int("failed", outcome.Failed),
	)
	return outcome, nil
}
