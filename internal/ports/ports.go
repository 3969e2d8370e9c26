package ports

import (
	"context"

	"deskscribe/internal/domain"
)

// PermissionGateway resolves OS-level grants before capture begins.
// State is re-checked on every call; the user may change settings
// between runs. A refused request surfaces as *domain.PermissionDeniedError.
type PermissionGateway interface {
	Ensure(ctx context.Context, kinds ...domain.PermissionKind) error
}

// CaptureConfig describes how audio should be captured.
type CaptureConfig struct {
	SampleRate int
	Channels   int
	ChunkSize  int
	Device     string
}

// CaptureStream is a live capture session. Buffers are emitted in capture
// order and the channel closes when delivery stops for any reason; Wait
// reports why. Close is idempotent and safe even if Open never completed.
type CaptureStream interface {
	Buffers() <-chan domain.AudioBuffer
	Wait() error
	Close() error
}

// CaptureSource opens capture streams for one capability (system mix or
// microphone). Available reports whether the backing subsystem exists on
// the running host without opening anything.
type CaptureSource interface {
	Name() string
	Available() bool
	Open(ctx context.Context, cfg CaptureConfig) (CaptureStream, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
}

// StreamingSession is an active recognition session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming recognition sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// EventSink emits backend state/events to the presentation layer.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	TranscriptUpdated(text string, final bool)
	SessionError(code domain.ErrorCode, detail string)
}
