package questions_test

import (
	"testing"

	"viva/internal/questions"
	"viva/internal/store"
)

func testBank() questions.Bank {
	return questions.Bank{
		Content: []questions.BankEntry{
			{Text: "c1"}, {Text: "c2"}, {Text: "c3"}, {Text: "c4"},
		},
		Process: []questions.BankEntry{
			{Text: "p1"}, {Text: "p2"}, {Text: "p3"},
		},
	}
}

func TestSelectSizesAndOrder(t *testing.T) {
	selector := questions.NewSeededSelector(1, 2)
	selected := selector.Select(testBank(), 2, 2)

	if len(selected) != 4 {
		t.Fatalf("selected %d questions, want 4", len(selected))
	}
	for i, q := range selected[:2] {
		if q.Category != questions.CategoryContent {
			t.Fatalf("question %d category = %q, want content first", i, q.Category)
		}
	}
	for i, q := range selected[2:] {
		if q.Category != questions.CategoryProcess {
			t.Fatalf("question %d category = %q, want process after content", i+2, q.Category)
		}
	}
}

func TestSelectNoDuplicates(t *testing.T) {
	selector := questions.NewSelector()
	for run := 0; run < 100; run++ {
		selected := selector.Select(testBank(), 3, 3)
		seen := make(map[string]struct{}, len(selected))
		for _, q := range selected {
			if _, dup := seen[q.Text]; dup {
				t.Fatalf("duplicate question %q in selection", q.Text)
			}
			seen[q.Text] = struct{}{}
		}
	}
}

func TestSelectCapsAtPoolSize(t *testing.T) {
	selector := questions.NewSelector()
	selected := selector.Select(testBank(), 10, 10)
	if len(selected) != 7 {
		t.Fatalf("selected %d, want 7 (full pool)", len(selected))
	}
}

func TestSelectZeroCount(t *testing.T) {
	selector := questions.NewSelector()
	if selected := selector.Select(testBank(), 0, 0); len(selected) != 0 {
		t.Fatalf("selected %d questions for zero counts", len(selected))
	}
}

func TestSelectDoesNotMutateBank(t *testing.T) {
	bank := testBank()
	selector := questions.NewSelector()
	for run := 0; run < 50; run++ {
		selector.Select(bank, 2, 2)
	}
	want := testBank()
	for i, entry := range bank.Content {
		if entry.Text != want.Content[i].Text {
			t.Fatalf("content pool mutated at %d: %q", i, entry.Text)
		}
	}
	for i, entry := range bank.Process {
		if entry.Text != want.Process[i].Text {
			t.Fatalf("process pool mutated at %d: %q", i, entry.Text)
		}
	}
}

// Rough uniformity check: over many draws every bank entry should be picked
// a comparable number of times.
func TestSelectUniformity(t *testing.T) {
	selector := questions.NewSeededSelector(7, 11)
	counts := make(map[string]int)
	const runs = 4000

	for run := 0; run < runs; run++ {
		for _, q := range selector.Select(testBank(), 2, 0) {
			counts[q.Text]++
		}
	}

	// Each of 4 content entries should appear in about half the draws.
	expected := runs * 2 / 4
	for _, text := range []string{"c1", "c2", "c3", "c4"} {
		count := counts[text]
		if count < expected*8/10 || count > expected*12/10 {
			t.Fatalf("entry %s drawn %d times, expected around %d", text, count, expected)
		}
	}
}

func TestDefaultBankLoads(t *testing.T) {
	bank, err := questions.DefaultBank()
	if err != nil {
		t.Fatalf("DefaultBank: %v", err)
	}
	if len(bank.Content) == 0 || len(bank.Process) == 0 {
		t.Fatalf("default bank partitions empty: %d/%d", len(bank.Content), len(bank.Process))
	}
}

func TestLoadBankEmptyPathUsesDefault(t *testing.T) {
	bank, err := questions.LoadBank("")
	if err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	if len(bank.Content) == 0 {
		t.Fatal("embedded bank not loaded for empty path")
	}
}

func TestSelectedCategoriesMatchStoreQuestions(t *testing.T) {
	selector := questions.NewSeededSelector(3, 4)
	selected := selector.Select(testBank(), 1, 1)
	if len(selected) != 2 {
		t.Fatalf("selected %d, want 2", len(selected))
	}
	want := []store.Question{
		{Category: questions.CategoryContent},
		{Category: questions.CategoryProcess},
	}
	for i := range selected {
		if selected[i].Category != want[i].Category {
			t.Fatalf("category order mismatch at %d: %s", i, selected[i].Category)
		}
	}
}
