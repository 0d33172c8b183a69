package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"viva/internal/api"
	"viva/internal/config"
	"viva/internal/logging"
	"viva/internal/store"
	"viva/internal/testsupport"
)

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) (*httptest.Server, *Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Paths.APIToken = "test-token"

	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ts := httptest.NewServer(d.apiServer.handler())
	t.Cleanup(ts.Close)
	return ts, d, cfg
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, buf.Bytes()
}

func TestIntakeEndpoint(t *testing.T) {
	ts, d, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/submissions", "test-token", api.IntakeRequest{
		StudentName: "Jane Doe",
		EssayText:   "An essay about rivers.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var payload api.IntakeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.SessionID == "" || len(payload.Questions) == 0 || payload.Prompt == "" {
		t.Fatalf("incomplete intake response: %+v", payload)
	}

	sub, err := d.Store().GetBySessionID(context.Background(), payload.SessionID)
	if err != nil || sub == nil {
		t.Fatalf("submission not persisted: %v", err)
	}
}

func TestIntakeRejectsOversizedEssay(t *testing.T) {
	ts, d, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Intake.MaxEssayChars = 5
	})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/submissions", "test-token", api.IntakeRequest{
		StudentName: "Jane Doe",
		EssayText:   "definitely longer than five",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if !strings.Contains(string(body), "limit 5") || !strings.Contains(string(body), "got 27") {
		t.Fatalf("error missing limit/actual: %s", body)
	}

	subs, _ := d.Store().List(context.Background())
	if len(subs) != 0 {
		t.Fatal("rejected essay created a record")
	}
}

func TestAuthFailureDoesNotMutate(t *testing.T) {
	ts, d, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/submissions", "wrong-token", api.IntakeRequest{
		StudentName: "Jane Doe",
		EssayText:   "essay",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/submissions", "", api.IntakeRequest{
		StudentName: "Jane Doe",
		EssayText:   "essay",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", resp.StatusCode)
	}

	subs, _ := d.Store().List(context.Background())
	if len(subs) != 0 {
		t.Fatal("unauthorized request created a record")
	}
}

func TestWebhookSecretFailsClosed(t *testing.T) {
	ts, d, _ := newTestServer(t)
	testsupport.NewSubmission(t, d.Store(), "sess-1", "Jane Doe")

	payload := api.WebhookRequest{
		ConversationID:      "conv-1",
		SessionID:           "sess-1",
		CallDurationSeconds: 120,
		Transcript:          []api.WebhookTurn{{Role: "user", Message: "Hello."}},
	}

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/webhook/transcript?secret=wrong", "", payload)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	sub, _ := d.Store().GetBySessionID(context.Background(), "sess-1")
	if sub.Status != store.StatusSubmitted {
		t.Fatalf("bad secret mutated record: %s", sub.Status)
	}
}

func TestWebhookDelivery(t *testing.T) {
	ts, d, cfg := newTestServer(t)
	testsupport.NewSubmission(t, d.Store(), "sess-2", "Jane Doe")

	url := fmt.Sprintf("%s/api/webhook/transcript?secret=%s", ts.URL, cfg.Voice.WebhookSecret)
	payload := api.WebhookRequest{
		ConversationID:      "conv-2",
		SessionID:           "sess-2",
		CallDurationSeconds: 120,
		Transcript: []api.WebhookTurn{
			{Role: "agent", Message: "Ready?"},
			{Role: "user", Message: "Yes."},
		},
	}

	resp, body := doJSON(t, http.MethodPost, url, "", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var result api.WebhookResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !result.Applied || result.SessionID != "sess-2" {
		t.Fatalf("webhook result = %+v", result)
	}

	// Redelivery is accepted but applies nothing.
	resp, body = doJSON(t, http.MethodPost, url, "", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("redelivery status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal redelivery: %v", err)
	}
	if result.Applied {
		t.Fatal("redelivery reported as applied")
	}
}

func TestWebhookNoMatchReturns404(t *testing.T) {
	ts, _, cfg := newTestServer(t)

	url := fmt.Sprintf("%s/api/webhook/transcript?secret=%s", ts.URL, cfg.Voice.WebhookSecret)
	resp, _ := doJSON(t, http.MethodPost, url, "", api.WebhookRequest{
		ConversationID:      "conv-unknown",
		CallDurationSeconds: 120,
		Transcript:          []api.WebhookTurn{{Role: "user", Message: "Hello."}},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListAndDetailEndpoints(t *testing.T) {
	ts, d, _ := newTestServer(t)
	testsupport.NewSubmission(t, d.Store(), "sess-3", "Jane Doe")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/submissions?status=submitted", "test-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list api.SubmissionListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list.Submissions) != 1 || list.Submissions[0].SessionID != "sess-3" {
		t.Fatalf("list = %+v", list)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/submissions?status=bogus", "test-token", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus status filter = %d, want 400", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/submissions/sess-3", "test-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status = %d", resp.StatusCode)
	}
	var detail api.SubmissionDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if detail.EssayText == "" {
		t.Fatal("detail missing essay text")
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/submissions/sess-missing", "test-token", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing detail status = %d, want 404", resp.StatusCode)
	}
}

func TestStartDefenseEndpoint(t *testing.T) {
	ts, d, _ := newTestServer(t)
	ctx := context.Background()
	testsupport.NewSubmission(t, d.Store(), "sess-6", "Jane Doe")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/submissions/sess-6/start-defense", "test-token",
		api.StartDefenseRequest{ConversationID: "conv-6"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var result api.StartDefenseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Status != string(store.StatusDefenseStarted) {
		t.Fatalf("status = %s, want defense_started", result.Status)
	}

	sub, err := d.Store().GetBySessionID(ctx, "sess-6")
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if sub.Status != store.StatusDefenseStarted || sub.ConversationID != "conv-6" {
		t.Fatalf("record = %s / %q", sub.Status, sub.ConversationID)
	}

	// Repeating the signal after the defense is underway is a conflict.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/submissions/sess-6/start-defense", "test-token", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat status = %d, want 409", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/submissions/sess-missing/start-defense", "test-token", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", resp.StatusCode)
	}
}

func TestToggleExcludedEndpoint(t *testing.T) {
	ts, d, _ := newTestServer(t)
	ctx := context.Background()
	testsupport.NewSubmission(t, d.Store(), "sess-4", "Jane Doe")
	if _, err := d.Store().AttachDefense(ctx, "sess-4", store.DefenseRecord{
		Transcript:          "STUDENT: brief",
		CallDurationSeconds: 20,
		Status:              store.StatusExcluded,
	}); err != nil {
		t.Fatalf("AttachDefense: %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/submissions/sess-4/toggle-excluded", "test-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var result api.ToggleExcludedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Status != string(store.StatusDefenseComplete) {
		t.Fatalf("toggled status = %s", result.Status)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, d, _ := newTestServer(t)
	testsupport.NewSubmission(t, d.Store(), "sess-5", "Jane Doe")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/status", "test-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status api.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !status.Running || status.Total != 1 || status.Open != 1 {
		t.Fatalf("status payload = %+v", status)
	}
}
