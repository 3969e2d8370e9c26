package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"deskscribe/internal/domain"
	"deskscribe/internal/ports"
)

func TestNewProviderDefaults(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{}, nil)
	if p.cfg.APIBaseURL != "https://api.deepgram.com/v1" {
		t.Fatalf("unexpected base url: %q", p.cfg.APIBaseURL)
	}
	if p.cfg.Model != "nova-2" {
		t.Fatalf("unexpected model: %q", p.cfg.Model)
	}
	if p.cfg.Language != "en-US" {
		t.Fatalf("unexpected language: %q", p.cfg.Language)
	}
}

func TestStartStreamingRequiresAPIKey(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{APIKey: "  "}, nil)
	_, err := p.StartStreaming(context.Background(), ports.StreamingConfig{})
	if err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestListenURLDefaults(t *testing.T) {
	t.Parallel()

	got, err := listenURL(
		Config{APIBaseURL: "https://api.deepgram.com/v1", Model: "nova-2", Language: "en-US"},
		ports.StreamingConfig{},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"wss://api.deepgram.com/v1/listen",
		"encoding=linear16",
		"sample_rate=16000",
		"channels=1",
		"language=en-US",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in url: %s", want, got)
		}
	}
}

func TestListenURLPlainHTTPBase(t *testing.T) {
	t.Parallel()

	got, err := listenURL(
		Config{APIBaseURL: "http://localhost:8080/v1", Model: "m", SmartFormat: true},
		ports.StreamingConfig{Encoding: "linear16", SampleRate: 8000, Channels: 2, InterimResults: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(got, "ws://localhost:8080/v1/listen") {
		t.Fatalf("unexpected ws url: %s", got)
	}
	if !strings.Contains(got, "interim_results=true") {
		t.Fatalf("expected interim_results in url: %s", got)
	}
	if !strings.Contains(got, "smart_format=true") {
		t.Fatalf("expected smart_format in url: %s", got)
	}
}

func TestListenURLInvalidBase(t *testing.T) {
	t.Parallel()

	if _, err := listenURL(Config{APIBaseURL: ":// bad"}, ports.StreamingConfig{}); err == nil {
		t.Fatalf("expected invalid base url error")
	}
}

func TestListenResponseTranscript(t *testing.T) {
	t.Parallel()

	var r1 listenResponse
	r1.Channel.Alternatives = []alternative{{Transcript: " channel "}}
	if got := r1.transcript(); got != "channel" {
		t.Fatalf("unexpected transcript from channel shape: %q", got)
	}

	var r2 listenResponse
	r2.Results.Channels = []struct {
		Alternatives []alternative `json:"alternatives"`
	}{{Alternatives: []alternative{{Transcript: "results"}}}}
	if got := r2.transcript(); got != "results" {
		t.Fatalf("unexpected transcript from results shape: %q", got)
	}

	if got := (listenResponse{}).transcript(); got != "" {
		t.Fatalf("expected empty transcript, got %q", got)
	}
}

func TestRecognizerErrorTerminatesSession(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Error","message":"boom"}`)); err != nil {
			return
		}
		// Keep the socket open and keep consuming audio, the way a broken
		// server might.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	p := NewProvider(Config{APIKey: "key", APIBaseURL: srv.URL}, nil)
	session, err := p.StartStreaming(context.Background(), ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("start streaming: %v", err)
	}
	defer session.Close()

	_ = session.SendAudio([]byte{1, 2, 3, 4})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-session.Events():
			if ok {
				continue
			}
		case <-deadline:
			t.Fatal("session never terminated after a recognizer error payload")
		}
		break
	}

	if err := session.Wait(); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("unexpected session error: %v", err)
	}
}

func TestLiveSessionEmitWaitsForConsumer(t *testing.T) {
	t.Parallel()

	s := &liveSession{
		events:    make(chan domain.TranscriptEvent, 1),
		terminate: make(chan struct{}),
	}
	s.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "first"}

	delivered := make(chan struct{})
	go func() {
		s.emit(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "second"})
		close(delivered)
	}()

	select {
	case <-delivered:
		t.Fatal("emit must wait for the consumer, not drop the event")
	case <-time.After(50 * time.Millisecond):
	}

	if got := <-s.events; got.Text != "first" {
		t.Fatalf("unexpected first event: %q", got.Text)
	}
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("emit never completed after the consumer drained")
	}
	if got := <-s.events; got.Text != "second" || !got.Final() {
		t.Fatalf("unexpected second event: %+v", got)
	}
}

func TestLiveSessionEmitReleasedByTeardown(t *testing.T) {
	t.Parallel()

	s := &liveSession{
		events:    make(chan domain.TranscriptEvent),
		terminate: make(chan struct{}),
	}

	released := make(chan struct{})
	go func() {
		s.emit(domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "stuck"})
		close(released)
	}()

	close(s.terminate)
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("emit must not block past session teardown")
	}
}

func TestLiveSessionSendAudioAfterCloseSend(t *testing.T) {
	t.Parallel()

	s := &liveSession{sendClosed: true}
	if err := s.SendAudio([]byte("x")); err == nil {
		t.Fatalf("expected closed error")
	}
}

func TestLiveSessionCloseSendIsIdempotent(t *testing.T) {
	t.Parallel()

	s := &liveSession{audio: make(chan []byte, 1)}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected second error: %v", err)
	}
}

func TestLiveSessionSetErrIgnoresExpectedCloses(t *testing.T) {
	t.Parallel()

	s := &liveSession{}
	s.setErr(&websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"})
	if s.sessionErr() != nil {
		t.Fatalf("expected normal close to be ignored")
	}

	s.setErr(errors.New("boom"))
	if s.sessionErr() == nil || s.sessionErr().Error() != "boom" {
		t.Fatalf("expected real error to be captured")
	}
}

func TestLiveSessionSetErrFirstWins(t *testing.T) {
	t.Parallel()

	s := &liveSession{}
	s.setErr(errors.New("first"))
	s.setErr(errors.New("second"))
	if s.sessionErr() == nil || s.sessionErr().Error() != "first" {
		t.Fatalf("expected first error to win")
	}
}
