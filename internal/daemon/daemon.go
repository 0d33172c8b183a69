// Package daemon assembles the long-running service: the HTTP API, the
// periodic recovery sweep, and the single-instance lock.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"viva/internal/api"
	"viva/internal/config"
	"viva/internal/correlate"
	"viva/internal/grading"
	"viva/internal/intake"
	"viva/internal/logging"
	"viva/internal/prompt"
	"viva/internal/questions"
	"viva/internal/recovery"
	"viva/internal/services/scorer"
	"viva/internal/services/voice"
	"viva/internal/store"
)

// Daemon owns every long-lived component of the service.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *store.Store
	intake  *intake.Service
	engine  *correlate.Engine
	grader  *grading.Grader
	scanner *recovery.Scanner

	lock      *flock.Flock
	apiServer *apiServer
}

// New builds a daemon from configuration. The store is opened (and the
// schema initialized) here; everything else is wired on top of it.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bank, err := questions.LoadBank(cfg.Paths.QuestionBank)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load question bank: %w", err)
	}

	composer, err := prompt.NewComposer(cfg.Paths.TemplateDir, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	engine := correlate.NewEngine(st, cfg.Grading.MinCallSeconds, logger)

	voiceClient := voice.NewClient(voice.Config{
		APIKey:         cfg.Voice.APIKey,
		BaseURL:        cfg.Voice.BaseURL,
		AgentID:        cfg.Voice.AgentID,
		TimeoutSeconds: cfg.Voice.TimeoutSeconds,
	})
	scorerClient := scorer.NewClient(scorer.Config{
		APIKey:         cfg.Scorer.APIKey,
		BaseURL:        cfg.Scorer.BaseURL,
		Model:          cfg.Scorer.Model,
		TimeoutSeconds: cfg.Scorer.TimeoutSeconds,
	})

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		store:  st,
		intake: intake.NewService(
			st, bank, questions.NewSelector(), composer,
			cfg.Intake.MaxEssayChars, cfg.Intake.ContentQuestions, cfg.Intake.ProcessQuestions,
			logger,
		),
		engine: engine,
		grader: grading.NewGrader(st, scorerClient, logger),
		scanner: recovery.NewScanner(
			st, voiceClient, engine,
			time.Duration(cfg.Recovery.GracePeriodSeconds)*time.Second,
			time.Duration(cfg.Recovery.SweepIntervalSeconds)*time.Second,
			logger,
		),
		lock: flock.New(lockFilePath(cfg)),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	d.apiServer = server
	return d, nil
}

func lockFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "viva.lock")
}

// Run starts the API server and the recovery loop, then blocks until the
// context is cancelled. Only one daemon may run against a data directory at
// a time; a second instance fails fast on the lock file.
func (d *Daemon) Run(ctx context.Context) error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock file: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is already running (lock %s)", d.lock.Path())
	}
	defer func() {
		_ = d.lock.Unlock()
		_ = os.Remove(d.lock.Path())
	}()

	log := d.log()
	log.Info("daemon starting",
		logging.Int("pid", os.Getpid()),
		logging.String("db_path", d.store.Path()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.apiServer != nil {
		if err := d.apiServer.start(runCtx); err != nil {
			return err
		}
		defer d.apiServer.stop()
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		d.scanner.Run(runCtx)
	}()

	<-runCtx.Done()
	log.Info("daemon stopping")
	<-sweepDone
	return nil
}

// Close releases the daemon's resources.
func (d *Daemon) Close() error {
	if d.apiServer != nil {
		d.apiServer.stop()
	}
	return d.store.Close()
}

// ApplyWebhook converts a webhook payload into a correlation delivery and
// applies it. The correlation token may ride in the top-level session_id
// field or in the provider's dynamic variables.
func (d *Daemon) ApplyWebhook(ctx context.Context, req api.WebhookRequest) (correlate.Outcome, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(req.DynamicVariables["session_id"])
	}

	turns := make([]correlate.Turn, 0, len(req.Transcript))
	for _, turn := range req.Transcript {
		turns = append(turns, correlate.Turn{Role: turn.Role, Message: turn.Message})
	}

	return d.engine.Apply(ctx, correlate.Delivery{
		ConversationID:      req.ConversationID,
		SessionID:           sessionID,
		CallDurationSeconds: req.CallDurationSeconds,
		Turns:               turns,
	})
}

// Status reports runtime state and submission counts.
func (d *Daemon) Status(ctx context.Context) (api.StatusResponse, error) {
	health, err := d.store.Health(ctx)
	if err != nil {
		return api.StatusResponse{}, err
	}
	return api.StatusResponse{
		Running:         true,
		PID:             os.Getpid(),
		DBPath:          d.store.Path(),
		LockFilePath:    d.lock.Path(),
		Total:           health.Total,
		Open:            health.Open,
		DefenseComplete: health.DefenseComplete,
		Excluded:        health.Excluded,
		Graded:          health.Graded,
		Reviewed:        health.Reviewed,
	}, nil
}

// Store exposes the underlying store for CLI commands sharing the daemon
// wiring without running the loop.
func (d *Daemon) Store() *store.Store {
	return d.store
}

// Grader exposes the grading pipeline.
func (d *Daemon) Grader() *grading.Grader {
	return d.grader
}

// Scanner exposes the recovery scanner.
func (d *Daemon) Scanner() *recovery.Scanner {
	return d.scanner
}

// Intake exposes the submission intake service.
func (d *Daemon) Intake() *intake.Service {
	return d.intake
}

func (d *Daemon) log() *slog.Logger {
	return d.logger.With(logging.String(logging.FieldComponent, "daemon"))
}
