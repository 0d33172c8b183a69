package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"viva/internal/api"
	"viva/internal/config"
	"viva/internal/logging"
	"viva/internal/services"
	"viva/internal/store"
)

const maxRequestBody = 1 << 20 // 1 MiB

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	mux.HandleFunc("/api/submissions", authMiddleware(token, srv.handleSubmissions))
	mux.HandleFunc("/api/submissions/", authMiddleware(token, srv.handleSubmissionItem))
	mux.HandleFunc("/api/webhook/transcript", webhookSecretMiddleware(cfg.Voice.WebhookSecret, srv.handleWebhook))
	mux.HandleFunc("/api/grade", authMiddleware(token, srv.handleGrade))
	mux.HandleFunc("/api/recover", authMiddleware(token, srv.handleRecover))
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// handler returns the assembled HTTP handler, for tests.
func (s *apiServer) handler() http.Handler {
	return s.server.Handler
}

func (s *apiServer) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSubmissions(w, r)
	case http.MethodPost:
		s.createSubmission(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listSubmissions(w http.ResponseWriter, r *http.Request) {
	var statuses []store.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := store.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	subs, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := api.SubmissionListResponse{Submissions: make([]api.Submission, 0, len(subs))}
	for _, sub := range subs {
		payload.Submissions = append(payload.Submissions, api.FromSubmission(sub))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req api.IntakeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.daemon.intake.Create(r.Context(), req.StudentName, req.EssayText)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.IntakeResponse{
		SessionID:    result.Submission.SessionID,
		Questions:    result.Submission.Questions,
		Prompt:       result.Prompt,
		FirstMessage: result.FirstMessage,
	})
}

func (s *apiServer) handleSubmissionItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/submissions/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		s.writeError(w, http.StatusNotFound, "submission not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.showSubmission(w, r, sessionID)
	case action == "start-defense" && r.Method == http.MethodPost:
		s.startDefense(w, r, sessionID)
	case action == "toggle-excluded" && r.Method == http.MethodPost:
		s.toggleExcluded(w, r, sessionID)
	case action == "review" && r.Method == http.MethodPost:
		s.reviewSubmission(w, r, sessionID)
	case action == "":
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		s.writeError(w, http.StatusNotFound, "unknown submission action")
	}
}

func (s *apiServer) showSubmission(w http.ResponseWriter, r *http.Request, sessionID string) {
	sub, err := s.daemon.store.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sub == nil {
		s.writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.SubmissionDetailResponse{
		Submission: api.FromSubmission(sub),
		EssayText:  sub.EssayText,
	})
}

// startDefense records the call-started signal the intake front end sends
// when it launches the voice session, moving the submission to
// defense_started so the recovery sweep knows a conversation is expected.
func (s *apiServer) startDefense(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req api.StartDefenseRequest
	if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
		return
	}

	sub, err := s.daemon.store.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sub == nil {
		s.writeError(w, http.StatusNotFound, "submission not found")
		return
	}

	applied, err := s.daemon.store.MarkDefenseStarted(r.Context(), sessionID, strings.TrimSpace(req.ConversationID))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !applied {
		s.writeError(w, http.StatusConflict,
			fmt.Sprintf("submission is %s, not awaiting its defense", sub.Status))
		return
	}
	s.writeJSON(w, http.StatusOK, api.StartDefenseResponse{
		SessionID: sessionID,
		Status:    string(store.StatusDefenseStarted),
	})
}

func (s *apiServer) toggleExcluded(w http.ResponseWriter, r *http.Request, sessionID string) {
	status, err := s.daemon.store.ToggleExcluded(r.Context(), sessionID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ToggleExcludedResponse{
		SessionID: sessionID,
		Status:    string(status),
	})
}

func (s *apiServer) reviewSubmission(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req api.ReviewRequest
	if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Notes) != "" {
		if err := s.daemon.store.SetInstructorNotes(r.Context(), sessionID, req.Notes); err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	applied, err := s.daemon.store.MarkReviewed(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !applied {
		s.writeError(w, http.StatusConflict, "submission is not graded or excluded")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ToggleExcludedResponse{
		SessionID: sessionID,
		Status:    string(store.StatusReviewed),
	})
}

func (s *apiServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.WebhookRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	// Every delivery gets a correlation id so its log lines can be tied
	// together across the engine and this handler.
	ctx := services.WithRequestID(r.Context(), uuid.NewString())

	outcome, err := s.daemon.ApplyWebhook(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrNoMatch) {
			// Keep the raw payload in the log for manual reconciliation.
			raw, _ := json.Marshal(req)
			logging.WithContext(ctx, s.log()).Warn("unmatched transcript delivery",
				logging.String(logging.FieldConversationID, req.ConversationID),
				logging.String("payload", string(raw)),
			)
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeServiceError(w, err)
		return
	}

	response := api.WebhookResponse{
		Status:  string(outcome.Status),
		Method:  string(outcome.Method),
		Applied: outcome.Applied,
	}
	if outcome.Submission != nil {
		response.SessionID = outcome.Submission.SessionID
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *apiServer) handleGrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.GradeRequest
	if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
		return
	}

	if sessionID := strings.TrimSpace(req.SessionID); sessionID != "" {
		if _, err := s.daemon.grader.Grade(r.Context(), sessionID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.GradeResponse{Graded: 1})
		return
	}

	outcome, err := s.daemon.grader.GradeEligible(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.GradeResponse{
		Graded: outcome.Graded,
		Failed: outcome.Failed,
	})
}

func (s *apiServer) handleRecover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	outcome, err := s.daemon.scanner.Sweep(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecoverResponse{
		Scanned:   outcome.Scanned,
		Recovered: outcome.Recovered,
		Pending:   outcome.Pending,
		Failed:    outcome.Failed,
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps error markers onto HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrAuth):
		s.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNoMatch):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExternalService), errors.Is(err, services.ErrTimeout):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
