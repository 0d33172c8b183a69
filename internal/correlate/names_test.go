package correlate

import "testing"

func TestExtractIntroducedName(t *testing.T) {
	tests := []struct {
		name  string
		turns []Turn
		want  string
	}{
		{
			name: "my name is",
			turns: []Turn{
				{Role: "user", Message: "Hello, my name is Jane Doe."},
			},
			want: "Jane Doe",
		},
		{
			name: "i am",
			turns: []Turn{
				{Role: "user", Message: "Hi, I am Marcus."},
			},
			want: "Marcus",
		},
		{
			name: "contraction",
			turns: []Turn{
				{Role: "user", Message: "I'm Sofia Reyes, nice to meet you."},
			},
			want: "Sofia Reyes",
		},
		{
			name: "this is",
			turns: []Turn{
				{Role: "user", Message: "this is Omar speaking"},
			},
			want: "Omar",
		},
		{
			name: "examiner introductions ignored",
			turns: []Turn{
				{Role: "agent", Message: "My name is Professor Ellis."},
				{Role: "user", Message: "Good morning."},
			},
			want: "",
		},
		{
			name: "lowercase continuation not captured as name",
			turns: []Turn{
				{Role: "user", Message: "I'm ready to start."},
			},
			want: "",
		},
		{
			name: "first introduction wins",
			turns: []Turn{
				{Role: "user", Message: "My name is Jane Doe."},
				{Role: "user", Message: "Actually, this is Janet."},
			},
			want: "Jane Doe",
		},
		{
			name: "hyphenated surname",
			turns: []Turn{
				{Role: "user", Message: "my name is Anna Lee-Smith"},
			},
			want: "Anna Lee-Smith",
		},
		{
			name: "phrase inside a word does not match",
			turns: []Turn{
				{Role: "user", Message: "The exam was semi am Jane Doe territory."},
			},
			want: "",
		},
		{
			name:  "no turns",
			turns: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractIntroducedName(tt.turns); got != tt.want {
				t.Fatalf("ExtractIntroducedName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  jane   doe "); got != "Jane Doe" {
		t.Fatalf("NormalizeName = %q, want %q", got, "Jane Doe")
	}
	if got := NormalizeName(""); got != "" {
		t.Fatalf("NormalizeName empty = %q", got)
	}
}

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]Turn{
		{Role: "agent", Message: "Are you ready?"},
		{Role: "user", Message: "Yes."},
		{Role: "user", Message: "   "},
		{Role: "narrator", Message: "unknown roles go to the student"},
	})
	want := "EXAMINER: Are you ready?\n\nSTUDENT: Yes.\n\nSTUDENT: unknown roles go to the student"
	if got != want {
		t.Fatalf("FormatTranscript = %q, want %q", got, want)
	}
}

func TestFormatTranscriptEmpty(t *testing.T) {
	if got := FormatTranscript(nil); got != "" {
		t.Fatalf("FormatTranscript(nil) = %q", got)
	}
}
