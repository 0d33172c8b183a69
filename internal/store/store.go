package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"viva/internal/config"
)

// Store manages submission persistence backed by SQLite.
//
// All mutating operations are expressed as guarded UPDATEs keyed by
// session_id with a status precondition, so a race between webhook
// delivery and the recovery sweep serializes on the database and the
// loser observes a clean "not applied" result instead of a mixed state.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the submission database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "viva.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new submission in the submitted state.
func (s *Store) Create(ctx context.Context, sessionID, studentName, essayText string, questions []Question) (*Submission, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}
	if strings.TrimSpace(studentName) == "" {
		return nil, errors.New("student name is required")
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO submissions (
            session_id, student_name, essay_text, questions_json, status,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		studentName,
		essayText,
		string(questionsJSON),
		StatusSubmitted,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	return s.GetBySessionID(ctx, sessionID)
}

// GetBySessionID fetches a submission by its session identifier.
func (s *Store) GetBySessionID(ctx context.Context, sessionID string) (*Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE session_id = ?`, sessionID)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// GetByConversationID returns the submission owning a voice conversation, if any.
func (s *Store) GetByConversationID(ctx context.Context, conversationID string) (*Submission, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE conversation_id = ? LIMIT 1`,
		conversationID,
	)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by conversation: %w", err)
	}
	return sub, nil
}

// List returns submissions filtered by status set (or all when no status is provided),
// ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Submission, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + submissionColumns + ` FROM submissions`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// OpenByName returns open submissions for a student, most recently created first.
func (s *Store) OpenByName(ctx context.Context, studentName string) ([]*Submission, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+submissionColumns+` FROM submissions
         WHERE status IN (?, ?) AND student_name = ? COLLATE NOCASE
         ORDER BY created_at DESC, id DESC`,
		StatusSubmitted,
		StatusDefenseStarted,
		studentName,
	)
	if err != nil {
		return nil, fmt.Errorf("open by name: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// MostRecentOpen returns the single most recently created open submission across
// all students, or nil when none exist.
func (s *Store) MostRecentOpen(ctx context.Context) (*Submission, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+submissionColumns+` FROM submissions
         WHERE status IN (?, ?) ORDER BY created_at DESC, id DESC LIMIT 1`,
		StatusSubmitted,
		StatusDefenseStarted,
	)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent open: %w", err)
	}
	return sub, nil
}

// StuckBefore returns open submissions created before the cutoff, oldest first.
func (s *Store) StuckBefore(ctx context.Context, cutoff time.Time) ([]*Submission, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+submissionColumns+` FROM submissions
         WHERE status IN (?, ?) AND created_at < ?
         ORDER BY created_at, id`,
		StatusSubmitted,
		StatusDefenseStarted,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("stuck submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// SetInstructorNotes replaces the operator notes on a submission.
func (s *Store) SetInstructorNotes(ctx context.Context, sessionID, notes string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions SET instructor_notes = ?, updated_at = ? WHERE session_id = ?`,
		nullableString(notes),
		time.Now().UTC().Format(time.RFC3339Nano),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("set instructor notes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("submission %s not found", sessionID)
	}
	return nil
}

// Stats returns a count of submissions grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("submission stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates submission state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusSubmitted, StatusDefenseStarted:
			health.Open += count
		case StatusDefenseComplete:
			health.DefenseComplete += count
		case StatusExcluded:
			health.Excluded += count
		case StatusGraded:
			health.Graded += count
		case StatusReviewed:
			health.Reviewed += count
		}
	}
	return health, nil
}

const submissionColumns = "id, session_id, student_name, essay_text, questions_json, status, transcript, conversation_id, call_duration_seconds, grade_multiplier, grade_comments, instructor_notes, created_at, updated_at, defense_started_at, defense_ended_at"

func collectSubmissions(rows *sql.Rows) ([]*Submission, error) {
	var subs []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubmission(scanner interface{ Scan(dest ...any) error }) (*Submission, error) {
	var (
		id             int64
		sessionID      string
		studentName    string
		essayText      string
		questionsJSON  string
		statusStr      string
		transcript     sql.NullString
		conversationID sql.NullString
		callDuration   sql.NullInt64
		multiplier     sql.NullFloat64
		comments       sql.NullString
		notes          sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
		startedRaw     sql.NullString
		endedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&studentName,
		&essayText,
		&questionsJSON,
		&statusStr,
		&transcript,
		&conversationID,
		&callDuration,
		&multiplier,
		&comments,
		&notes,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&endedRaw,
	); err != nil {
		return nil, err
	}

	sub := &Submission{
		ID:                  id,
		SessionID:           sessionID,
		StudentName:         studentName,
		EssayText:           essayText,
		Status:              Status(statusStr),
		Transcript:          transcript.String,
		ConversationID:      conversationID.String,
		CallDurationSeconds: int(callDuration.Int64),
		GradeMultiplier:     multiplier.Float64,
		GradeComments:       comments.String,
		InstructorNotes:     notes.String,
	}
	if questionsJSON != "" {
		if err := json.Unmarshal([]byte(questionsJSON), &sub.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		sub.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		sub.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			sub.DefenseStartedAt = &started
		}
	}
	if endedRaw.Valid {
		if ended, err := parseTimeString(endedRaw.String); err == nil {
			sub.DefenseEndedAt = &ended
		}
	}
	return sub, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
