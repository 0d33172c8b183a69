package voice_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"viva/internal/services"
	"viva/internal/services/voice"
)

const conversationBody = `{
	"conversation_id": "conv-1",
	"status": "done",
	"transcript": [
		{"role": "agent", "message": "Are you ready?"},
		{"role": "user", "message": "Yes."}
	],
	"metadata": {"call_duration_secs": 185},
	"conversation_initiation_client_data": {
		"dynamic_variables": {"session_id": "sess-1"}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *voice.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return voice.NewClient(
		voice.Config{APIKey: "key", BaseURL: server.URL},
		voice.WithSleeper(func(d time.Duration) {}),
	)
}

func TestConversationFetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Path != "/v1/convai/conversations/conv-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(conversationBody))
	})

	conversation, err := client.Conversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if conversation.SessionID != "sess-1" {
		t.Fatalf("session id = %q, want sess-1", conversation.SessionID)
	}
	if conversation.CallDurationSeconds != 185 {
		t.Fatalf("duration = %d, want 185", conversation.CallDurationSeconds)
	}
	if len(conversation.Turns) != 2 || conversation.Turns[1].Message != "Yes." {
		t.Fatalf("turns = %+v", conversation.Turns)
	}
}

func TestConversationNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
	})

	_, err := client.Conversation(context.Background(), "conv-missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConversationInProgress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"conversation_id": "conv-1", "status": "in-progress"}`))
	})

	_, err := client.Conversation(context.Background(), "conv-1")
	if !errors.Is(err, services.ErrInProgress) {
		t.Fatalf("err = %v, want ErrInProgress", err)
	}
	// In progress and not found must stay distinguishable.
	if errors.Is(err, services.ErrNotFound) {
		t.Fatal("in-progress conflated with not-found")
	}
}

func TestConversationRetriesTransientFailure(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(conversationBody))
	})

	conversation, err := client.Conversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (single retry)", attempts)
	}
	if conversation.ConversationID != "conv-1" {
		t.Fatalf("conversation = %+v", conversation)
	}
}

func TestConversationDoesNotRetryNotFound(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "nope", http.StatusNotFound)
	})

	_, err := client.Conversation(context.Background(), "conv-1")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestListRecent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/conversations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"conversations": [
			{"conversation_id": "conv-1", "status": "done"},
			{"conversation_id": "conv-2", "status": "in-progress"}
		]}`))
	})

	summaries, err := client.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ConversationID != "conv-1" {
		t.Fatalf("summaries = %+v", summaries)
	}
}
