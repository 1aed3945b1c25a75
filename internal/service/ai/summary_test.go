package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/domain"
)

func noteReport(source domain.Source, notes string, postedAt *time.Time) domain.ReportBody {
	return domain.ReportBody{
		Source:   source,
		Notes:    notes,
		PostedAt: postedAt,
	}
}

func TestBuildSummaryInputSelectsAndOrders(t *testing.T) {
	older := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	input := BuildSummaryInput([]domain.ReportBody{
		noteReport(domain.SourceProtonDB, "Runs fine at 40 fps.", &older),
		noteReport(domain.SourceShareDeck, "Battery lasts 3 hours.", &newer),
		noteReport(domain.SourceProtonDB, "   ", &newer),
		noteReport(domain.SourceSteamDeckHQ, "A very long editorial review.", &newer),
		noteReport(domain.SourceShareDeck, "Undated note.", nil),
	})

	want := "Report 1: \nBattery lasts 3 hours.\n\n" +
		"Report 2: \nRuns fine at 40 fps.\n\n" +
		"Report 3: \nUndated note."
	if input != want {
		t.Fatalf("unexpected input:\n%q\nwant:\n%q", input, want)
	}
}

func TestBuildSummaryInputEmpty(t *testing.T) {
	if got := BuildSummaryInput(nil); got != "" {
		t.Fatalf("expected empty input, got %q", got)
	}

	got := BuildSummaryInput([]domain.ReportBody{
		noteReport(domain.SourceProtonDB, "", nil),
		noteReport(domain.SourceSteamDeckHQ, "Editorial notes.", nil),
	})
	if got != "" {
		t.Fatalf("expected empty input, got %q", got)
	}
}

func TestSummaryPromptContainsInstructionAndInput(t *testing.T) {
	prompt := SummaryPrompt("Report 1: \nGreat.")
	if !strings.Contains(prompt, "2-3 sentences") {
		t.Fatalf("prompt missing instruction: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Report 1: \nGreat.") {
		t.Fatalf("prompt must end with the report input: %q", prompt)
	}
}

func TestCleanSummary(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Summary: Runs great.", "Runs great."},
		{"summary:   Runs great.", "Runs great."},
		{"# Runs great on Deck.", "Runs great on Deck."},
		{"Runs\n\ngreat   on\tDeck.", "Runs great on Deck."},
		{"  Runs great.  ", "Runs great."},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanSummary(tc.in); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestSummarizeUsesPrimary(t *testing.T) {
	primary := &fakeProvider{name: "primary", text: "Summary: Runs great."}
	fallback := &fakeProvider{name: "fallback", text: "unused"}
	s := NewSummarizer(primary, fallback, zap.NewNop())

	got, err := s.Summarize(context.Background(), []domain.ReportBody{
		noteReport(domain.SourceProtonDB, "Great.", nil),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Runs great." {
		t.Fatalf("unexpected summary: %q", got)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback must not be called when primary succeeds")
	}
}

func TestSummarizeFallsBack(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("quota exceeded")}
	fallback := &fakeProvider{name: "fallback", text: "Runs well overall."}
	s := NewSummarizer(primary, fallback, zap.NewNop())

	got, err := s.Summarize(context.Background(), []domain.ReportBody{
		noteReport(domain.SourceProtonDB, "Great.", nil),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Runs well overall." {
		t.Fatalf("unexpected summary: %q", got)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("expected both providers called once, got %d/%d", primary.calls, fallback.calls)
	}
}

func TestSummarizeNoNotes(t *testing.T) {
	primary := &fakeProvider{name: "primary", text: "unused"}
	s := NewSummarizer(primary, nil, zap.NewNop())

	got, err := s.Summarize(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
	if primary.calls != 0 {
		t.Fatalf("provider must not be called without notes")
	}
}

func TestSummarizePropagatesFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("down")}
	s := NewSummarizer(primary, nil, zap.NewNop())

	if _, err := s.Summarize(context.Background(), []domain.ReportBody{
		noteReport(domain.SourceProtonDB, "Great.", nil),
	}); err == nil {
		t.Fatalf("expected error when the only provider fails")
	}
}
