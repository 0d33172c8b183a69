package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefenseRecord captures everything a finished voice conversation contributes
// to a submission.
type DefenseRecord struct {
	Transcript          string
	ConversationID      string
	CallDurationSeconds int
	Status              Status // StatusDefenseComplete or StatusExcluded
}

// AttachDefense applies a defense outcome to an open submission.
//
// The update is guarded on the submission still being open, which makes
// duplicate deliveries (webhook plus recovery sweep, or a re-run sweep) a
// detected no-op: the second writer sees applied == false and leaves the
// record untouched.
func (s *Store) AttachDefense(ctx context.Context, sessionID string, rec DefenseRecord) (bool, error) {
	if rec.Status != StatusDefenseComplete && rec.Status != StatusExcluded {
		return false, fmt.Errorf("invalid defense status %q", rec.Status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions
         SET status = ?, transcript = ?, conversation_id = ?,
             call_duration_seconds = ?,
             defense_started_at = COALESCE(defense_started_at, ?),
             defense_ended_at = ?, updated_at = ?
         WHERE session_id = ? AND status IN (?, ?)`,
		rec.Status,
		rec.Transcript,
		nullableString(rec.ConversationID),
		rec.CallDurationSeconds,
		now,
		now,
		now,
		sessionID,
		StatusSubmitted,
		StatusDefenseStarted,
	)
	if err != nil {
		return false, fmt.Errorf("attach defense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkDefenseStarted records that a voice conversation began for a submission.
// Only valid from the submitted state; later calls are no-ops.
func (s *Store) MarkDefenseStarted(ctx context.Context, sessionID, conversationID string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions
         SET status = ?, conversation_id = COALESCE(conversation_id, ?),
             defense_started_at = ?, updated_at = ?
         WHERE session_id = ? AND status = ?`,
		StatusDefenseStarted,
		nullableString(conversationID),
		now,
		now,
		sessionID,
		StatusSubmitted,
	)
	if err != nil {
		return false, fmt.Errorf("mark defense started: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetGrade records a grading outcome. It only applies to submissions in the
// defense_complete state carrying a non-empty transcript; callers must treat
// applied == false as a reportable failure, not a silent skip.
func (s *Store) SetGrade(ctx context.Context, sessionID string, multiplier float64, comments string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions
         SET status = ?, grade_multiplier = ?, grade_comments = ?, updated_at = ?
         WHERE session_id = ? AND status = ?
           AND transcript IS NOT NULL AND TRIM(transcript) != ''`,
		StatusGraded,
		multiplier,
		comments,
		now,
		sessionID,
		StatusDefenseComplete,
	)
	if err != nil {
		return false, fmt.Errorf("set grade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ToggleExcluded flips a submission between excluded and defense_complete.
// This is the only backward transition in the lifecycle and exists for the
// operator override; recovery passes never fight it because AttachDefense
// only touches open submissions.
func (s *Store) ToggleExcluded(ctx context.Context, sessionID string) (Status, error) {
	sub, err := s.GetBySessionID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sub == nil {
		return "", fmt.Errorf("submission %s not found", sessionID)
	}

	var target Status
	switch sub.Status {
	case StatusExcluded:
		target = StatusDefenseComplete
	case StatusDefenseComplete:
		target = StatusExcluded
	default:
		return "", fmt.Errorf("cannot toggle exclusion from status %q", sub.Status)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions SET status = ?, updated_at = ? WHERE session_id = ? AND status = ?`,
		target,
		now,
		sessionID,
		sub.Status,
	)
	if err != nil {
		return "", fmt.Errorf("toggle exclusion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return "", errors.New("submission changed concurrently; toggle not applied")
	}
	return target, nil
}

// MarkReviewed advances a graded or excluded submission to reviewed.
func (s *Store) MarkReviewed(ctx context.Context, sessionID string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions SET status = ?, updated_at = ? WHERE session_id = ? AND status IN (?, ?)`,
		StatusReviewed,
		now,
		sessionID,
		StatusGraded,
		StatusExcluded,
	)
	if err != nil {
		return false, fmt.Errorf("mark reviewed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
