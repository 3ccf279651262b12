package summarize

import "testing"

func TestBuildSystemPromptQueryFocusedRequiresQuery(t *testing.T) {
	if _, err := buildSystemPrompt(KindQueryFocused, LengthMedium, ""); err == nil {
		t.Fatalf("expected error when query_focused has no query")
	}
	prompt, err := buildSystemPrompt(KindQueryFocused, LengthMedium, "what changed?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsAll(prompt, "what changed?", "3-5 sentences") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
}

func TestBuildSystemPromptLengthTargets(t *testing.T) {
	cases := map[Length]string{
		LengthShort:    "1-2 sentences",
		LengthMedium:   "3-5 sentences",
		LengthDetailed: "5-10 sentences",
	}
	for length, want := range cases {
		prompt, err := buildSystemPrompt(KindAbstractive, length, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !containsAll(prompt, want) {
			t.Fatalf("expected prompt for length %q to mention %q, got %q", length, want, prompt)
		}
	}
}

func TestNullSummarizerReportsUnavailable(t *testing.T) {
	_, err := NullSummarizer{}.Summarize(nil, "text", KindAbstractive, LengthShort, "") //nolint:staticcheck // nil ctx fine for this stub
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	return len(sub) == 0 || indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
