package bootstrap

import (
	"testing"

	"deskscribe/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	services, err := Build(noopEventSink{}, "")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Logger == nil {
		t.Fatalf("expected logger")
	}
	if services.Config.Recognizer.APIKey != "test-key" {
		t.Fatalf("api key = %q, want test-key", services.Config.Recognizer.APIKey)
	}
}

func TestBuildFailsOnMissingConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Build(noopEventSink{}, "/nonexistent/deskscribe.yaml")
	if err == nil {
		t.Fatalf("expected build error for missing config file")
	}
}

func TestBuildOrdersSourcesByPreference(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DESKSCRIBE_AUDIO_PREFERRED_SOURCE", "microphone")

	services, err := Build(noopEventSink{}, "")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	sources := captureSources(services.Config, services.Logger)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Name() != "microphone" {
		t.Fatalf("first source = %q, want microphone", sources[0].Name())
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(_ domain.SessionState, _ domain.SessionStateReason) {}
func (noopEventSink) TranscriptUpdated(_ string, _ bool)                                     {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                              {}
