package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Recognizer.Model != "nova-2" {
		t.Fatalf("unexpected model: %q", cfg.Recognizer.Model)
	}
	if cfg.Recognizer.Language != "en-US" {
		t.Fatalf("unexpected language: %q", cfg.Recognizer.Language)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Audio.PreferredSource != "system" {
		t.Fatalf("unexpected preferred source: %q", cfg.Audio.PreferredSource)
	}
	if cfg.Engine.MaxRestartFailures != 3 {
		t.Fatalf("unexpected restart limit: %d", cfg.Engine.MaxRestartFailures)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "env-key")
	t.Setenv("DESKSCRIBE_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("DESKSCRIBE_AUDIO_PREFERRED_SOURCE", "microphone")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Recognizer.APIKey != "env-key" {
		t.Fatalf("expected api key from environment, got %q", cfg.Recognizer.APIKey)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("unexpected sample rate: %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.PreferredSource != "microphone" {
		t.Fatalf("unexpected preferred source: %q", cfg.Audio.PreferredSource)
	}
}

func TestLoadPrefixedKeyWinsOverProviderKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "provider-key")
	t.Setenv("DESKSCRIBE_RECOGNIZER_API_KEY", "prefixed-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Recognizer.APIKey != "prefixed-key" {
		t.Fatalf("expected prefixed key to win, got %q", cfg.Recognizer.APIKey)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deskscribe.yaml")
	contents := []byte("audio:\n  chunk_frames: 2048\nengine:\n  restart_backoff: 1s\n")
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.ChunkFrames != 2048 {
		t.Fatalf("unexpected chunk frames: %d", cfg.Audio.ChunkFrames)
	}
	if cfg.Engine.RestartBackoff != time.Second {
		t.Fatalf("unexpected backoff: %s", cfg.Engine.RestartBackoff)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadClampsInvalidValues(t *testing.T) {
	t.Setenv("DESKSCRIBE_AUDIO_CHUNK_FRAMES", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.ChunkFrames != 1024 {
		t.Fatalf("expected clamped chunk frames, got %d", cfg.Audio.ChunkFrames)
	}
}
