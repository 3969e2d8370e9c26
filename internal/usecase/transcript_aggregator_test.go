package usecase

import (
	"testing"

	"deskscribe/internal/domain"
)

func partial(text string) domain.TranscriptEvent {
	return domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: text}
}

func final(text string) domain.TranscriptEvent {
	return domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: text}
}

func TestPartialsReplaceWithinSession(t *testing.T) {
	a := newTranscriptAggregator()

	sequence := []struct {
		event domain.TranscriptEvent
		want  string
	}{
		{partial("h"), "h"},
		{partial("he"), "he"},
		{partial("hello"), "hello"},
		{final("hello"), "hello"},
	}
	for i, step := range sequence {
		if got := a.Apply(step.event); got != step.want {
			t.Fatalf("step %d: got %q, want %q", i, got, step.want)
		}
	}
}

func TestSessionsConcatenateAcrossFinals(t *testing.T) {
	a := newTranscriptAggregator()

	a.Apply(partial("hello"))
	a.Apply(final("hello"))
	if got := a.Apply(partial("wor")); got != "hello wor" {
		t.Fatalf("got %q, want committed text plus new partial", got)
	}
	if got := a.Apply(final("world")); got != "hello world" {
		t.Fatalf("got %q, want both segments committed", got)
	}
	if got := a.Current(); got != "hello world" {
		t.Fatalf("Current = %q, want hello world", got)
	}
}

func TestEmptyFinalPromotesLivePartial(t *testing.T) {
	a := newTranscriptAggregator()

	a.Apply(partial("hello"))
	if got := a.Apply(final("")); got != "hello" {
		t.Fatalf("got %q, want partial promoted to committed text", got)
	}
	// The next session must not resurrect or replace the promoted words.
	if got := a.Apply(partial("again")); got != "hello again" {
		t.Fatalf("got %q, want hello again", got)
	}
}

func TestBlankPartialsAreIgnored(t *testing.T) {
	a := newTranscriptAggregator()

	a.Apply(partial("hello"))
	if got := a.Apply(partial("  ")); got != "hello" {
		t.Fatalf("got %q, want previous partial retained", got)
	}
}

func TestEmptySessionLeavesTranscriptUntouched(t *testing.T) {
	a := newTranscriptAggregator()

	a.Apply(final("hello"))
	if got := a.Apply(final("")); got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}
