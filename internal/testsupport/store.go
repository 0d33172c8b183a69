package testsupport

import (
	"context"
	"testing"

	"viva/internal/config"
	"viva/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSubmission creates a submission for tests using the provided store.
func NewSubmission(t testing.TB, st *store.Store, sessionID, studentName string) *store.Submission {
	t.Helper()

	sub, err := st.Create(context.Background(), sessionID, studentName, "essay text", []store.Question{
		{Category: "content", Text: "What is the central argument of your essay?"},
		{Category: "process", Text: "How did you plan this essay?"},
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return sub
}
