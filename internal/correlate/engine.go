// Package correlate resolves finished voice conversations to the
// submissions that started them, then applies the outcome atomically.
package correlate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"viva/internal/logging"
	"viva/internal/services"
	"viva/internal/store"
)

// MatchMethod identifies which resolution step claimed a conversation.
type MatchMethod string

const (
	MatchSession      MatchMethod = "session_id"
	MatchConversation MatchMethod = "conversation_id"
	MatchName         MatchMethod = "name_introduction"
	MatchLatest       MatchMethod = "most_recent_open"
	MatchNone         MatchMethod = "none"
)

// Delivery is a finished conversation arriving from the webhook or from a
// recovery fetch. SessionID is the claimed session identifier from the
// provider's metadata and may be empty or wrong.
type Delivery struct {
	ConversationID      string
	SessionID           string
	CallDurationSeconds int
	Turns               []Turn
}

// Outcome reports how a delivery was resolved and whether it changed state.
// Applied is false when the matched submission was no longer open, which is
// how a duplicate delivery surfaces.
type Outcome struct {
	Submission *store.Submission
	Method     MatchMethod
	Status     store.Status
	Applied    bool
}

// Engine matches deliveries to submissions and writes the result.
type Engine struct {
	store          *store.Store
	logger         *slog.Logger
	minCallSeconds int
}

// NewEngine builds a correlation engine. Conversations shorter than
// minCallSeconds are recorded as excluded instead of defense_complete.
func NewEngine(st *store.Store, minCallSeconds int, logger *slog.Logger) *Engine {
	return &Engine{
		store:          st,
		logger:         logging.NewComponentLogger(logger, "correlate"),
		minCallSeconds: minCallSeconds,
	}
}

// Apply resolves a delivery and attaches its outcome to the matched
// submission. Resolution tries, in order: the claimed session id, prior
// conversation ownership, a self-introduced name in the student's turns, and
// finally the most recently created open submission. A delivery that matches
// nothing returns services.ErrNoMatch.
//
// Apply is safe to call repeatedly with the same delivery: the guarded store
// update makes the second application a detected no-op.
func (e *Engine) Apply(ctx context.Context, delivery Delivery) (Outcome, error) {
	sub, method, err := e.resolve(ctx, delivery)
	if err != nil {
		return Outcome{Method: MatchNone}, err
	}
	if sub == nil {
		logging.WithContext(ctx, e.logger).Warn("conversation matched no submission",
			logging.String(logging.FieldConversationID, delivery.ConversationID),
			logging.String("claimed_session_id", delivery.SessionID),
		)
		return Outcome{Method: MatchNone}, services.Wrap(
			services.ErrNoMatch, "correlate", "apply",
			fmt.Sprintf("conversation %s matched no open submission", delivery.ConversationID), nil)
	}

	// The resolved owner, not the claimed token, identifies every log line
	// from here on.
	ctx = services.WithSessionID(ctx, sub.SessionID)
	log := logging.WithContext(ctx, e.logger)

	status := store.StatusDefenseComplete
	if delivery.CallDurationSeconds < e.minCallSeconds {
		status = store.StatusExcluded
	}

	applied, err := e.store.AttachDefense(ctx, sub.SessionID, store.DefenseRecord{
		Transcript:          FormatTranscript(delivery.Turns),
		ConversationID:      delivery.ConversationID,
		CallDurationSeconds: delivery.CallDurationSeconds,
		Status:              status,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("attach defense for %s: %w", sub.SessionID, err)
	}

	if !applied {
		log.Info("duplicate delivery ignored",
			logging.String(logging.FieldConversationID, delivery.ConversationID),
			logging.String("method", string(method)),
		)
		return Outcome{Submission: sub, Method: method, Status: sub.Status, Applied: false}, nil
	}

	log.Info("defense recorded",
		logging.String(logging.FieldConversationID, delivery.ConversationID),
		logging.String(logging.FieldStatus, string(status)),
		logging.String("method", string(method)),
		logging.Int("call_duration_seconds", delivery.CallDurationSeconds),
	)

	updated, err := e.store.GetBySessionID(ctx, sub.SessionID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Submission: updated, Method: method, Status: status, Applied: true}, nil
}

func (e *Engine) resolve(ctx context.Context, delivery Delivery) (*store.Submission, MatchMethod, error) {
	if sessionID := strings.TrimSpace(delivery.SessionID); sessionID != "" {
		sub, err := e.store.GetBySessionID(ctx, sessionID)
		if err != nil {
			return nil, MatchNone, err
		}
		if sub != nil {
			return sub, MatchSession, nil
		}
	}

	if conversationID := strings.TrimSpace(delivery.ConversationID); conversationID != "" {
		sub, err := e.store.GetByConversationID(ctx, conversationID)
		if err != nil {
			return nil, MatchNone, err
		}
		if sub != nil {
			return sub, MatchConversation, nil
		}
	}

	if name := ExtractIntroducedName(delivery.Turns); name != "" {
		subs, err := e.store.OpenByName(ctx, name)
		if err != nil {
			return nil, MatchNone, err
		}
		if len(subs) > 0 {
			return subs[0], MatchName, nil
		}
	}

	sub, err := e.store.MostRecentOpen(ctx)
	if err != nil {
		return nil, MatchNone, err
	}
	if sub != nil {
		return sub, MatchLatest, nil
	}
	return nil, MatchNone, nil
}
