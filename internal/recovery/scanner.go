// Package recovery finds submissions stuck before defense completion and
// pulls their outcome directly from the voice provider. It is the pull
// half of correlation: whatever the webhook missed, the sweep picks up.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"viva/internal/correlate"
	"viva/internal/logging"
	"viva/internal/services"
	"viva/internal/services/voice"
	"viva/internal/store"
)

// recentLookback caps how many provider conversations one sweep inspects
// when matching submissions that never recorded a conversation id.
const recentLookback = 30

// VoiceReader is the subset of the voice client the scanner needs.
type VoiceReader interface {
	Conversation(ctx context.Context, conversationID string) (*voice.Conversation, error)
	ListRecent(ctx context.Context, limit int) ([]voice.Summary, error)
}

// Outcome summarizes one sweep.
type Outcome struct {
	Scanned   int
	Recovered int
	Pending   int
	Failed    int
}

// Scanner sweeps stuck submissions and applies recovered conversations
// through the correlation engine.
type Scanner struct {
	store       *store.Store
	voice       VoiceReader
	engine      *correlate.Engine
	gracePeriod time.Duration
	interval    time.Duration
	logger      *slog.Logger
}

// NewScanner builds a recovery scanner. Submissions younger than gracePeriod
// are left alone so the webhook gets first claim; interval drives the
// periodic Run loop.
func NewScanner(st *store.Store, reader VoiceReader, engine *correlate.Engine, gracePeriod, interval time.Duration, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:       st,
		voice:       reader,
		engine:      engine,
		gracePeriod: gracePeriod,
		interval:    interval,
		logger:      logging.NewComponentLogger(logger, "recovery"),
	}
}

// Sweep runs one recovery pass over every stuck submission.
//
// Sweep is idempotent: all writes go through the engine's guarded update, so
// re-running a sweep (or racing one against the webhook) re-applies nothing.
// Conversations the provider reports as missing or still in progress are
// skipped without failing the sweep.
func (s *Scanner) Sweep(ctx context.Context) (Outcome, error) {
	cutoff := time.Now().Add(-s.gracePeriod)
	stuck, err := s.store.StuckBefore(ctx, cutoff)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Scanned: len(stuck)}
	if len(stuck) == 0 {
		return outcome, nil
	}

	s.logger.Info("recovery sweep started",
		logging.Int("stuck", len(stuck)),
		logging.Duration("grace_period", s.gracePeriod),
	)

	// Fetched lazily, only when a stuck submission has no conversation id.
	var unclaimed map[string]*voice.Conversation
	for _, sub := range stuck {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}

		conversation, err := s.locate(ctx, sub, &unclaimed)
		switch {
		case errors.Is(err, services.ErrInProgress):
			outcome.Pending++
			continue
		case errors.Is(err, services.ErrNotFound):
			outcome.Pending++
			s.logger.Debug("no conversation found for submission",
				logging.String(logging.FieldSessionID, sub.SessionID),
			)
			continue
		case err != nil:
			outcome.Failed++
			s.logger.Error("recovery fetch failed",
				logging.String(logging.FieldSessionID, sub.SessionID),
				logging.Error(err),
			)
			continue
		case conversation == nil:
			outcome.Pending++
			continue
		}

		applied, err := s.apply(ctx, sub, conversation)
		if err != nil {
			outcome.Failed++
			s.logger.Error("recovery apply failed",
				logging.String(logging.FieldSessionID, sub.SessionID),
				logging.Error(err),
			)
			continue
		}
		if applied {
			outcome.Recovered++
		}
	}

	s.logger.Info("recovery sweep finished",
		logging.Int("scanned", outcome.Scanned),
		logging.Int("recovered", outcome.Recovered),
		logging.Int("pending", outcome.Pending),
		logging.Int("failed", outcome.Failed),
	)
	return outcome, nil
}

// locate finds the provider conversation for a stuck submission: directly by
// stored conversation id when one exists, otherwise by scanning recent
// finished conversations for a session id token matching the submission.
func (s *Scanner) locate(ctx context.Context, sub *store.Submission, unclaimed *map[string]*voice.Conversation) (*voice.Conversation, error) {
	if sub.ConversationID != "" {
		return s.voice.Conversation(ctx, sub.ConversationID)
	}

	if *unclaimed == nil {
		index, err := s.indexUnclaimed(ctx)
		if err != nil {
			return nil, err
		}
		*unclaimed = index
	}
	return (*unclaimed)[sub.SessionID], nil
}

// indexUnclaimed fetches recent finished conversations not yet owned by any
// submission and indexes them by the session id token they carry.
func (s *Scanner) indexUnclaimed(ctx context.Context) (map[string]*voice.Conversation, error) {
	summaries, err := s.voice.ListRecent(ctx, recentLookback)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*voice.Conversation)
	for _, summary := range summaries {
		owner, err := s.store.GetByConversationID(ctx, summary.ConversationID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			continue
		}

		conversation, err := s.voice.Conversation(ctx, summary.ConversationID)
		if errors.Is(err, services.ErrInProgress) || errors.Is(err, services.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if conversation.SessionID == "" {
			continue
		}
		if _, exists := index[conversation.SessionID]; !exists {
			index[conversation.SessionID] = conversation
		}
	}
	return index, nil
}

func (s *Scanner) apply(ctx context.Context, sub *store.Submission, conversation *voice.Conversation) (bool, error) {
	turns := make([]correlate.Turn, 0, len(conversation.Turns))
	for _, turn := range conversation.Turns {
		turns = append(turns, correlate.Turn{Role: turn.Role, Message: turn.Message})
	}

	result, err := s.engine.Apply(ctx, correlate.Delivery{
		ConversationID:      conversation.ConversationID,
		SessionID:           sub.SessionID,
		CallDurationSeconds: conversation.CallDurationSeconds,
		Turns:               turns,
	})
	if err != nil {
		return false, err
	}
	if result.Applied {
		s.logger.Info("stuck submission recovered",
			logging.String(logging.FieldSessionID, sub.SessionID),
			logging.String(logging.FieldConversationID, conversation.ConversationID),
			logging.String(logging.FieldStatus, string(result.Status)),
		)
	}
	return result.Applied, nil
}

// Run sweeps on the configured interval until the context is cancelled.
// Individual sweep failures are logged and do not stop the loop.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("recovery sweep failed", logging.Error(err))
			}
		}
	}
}
