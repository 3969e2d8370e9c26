package domain

// SessionState models the capture/transcription lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateStarting  SessionState = "starting"
	SessionStateRecording SessionState = "recording"
	SessionStateStopping  SessionState = "stopping"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady             SessionStateReason = "ready"
	SessionReasonPermissionCheck   SessionStateReason = "permission_check"
	SessionReasonCaptureStarted    SessionStateReason = "capture_started"
	SessionReasonCaptureStopped    SessionStateReason = "capture_stopped"
	SessionReasonCaptureLost       SessionStateReason = "capture_lost"
	SessionReasonStartFailed       SessionStateReason = "start_failed"
	SessionReasonRecognitionFailed SessionStateReason = "recognition_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodePermission  ErrorCode = "permission"
	ErrorCodeCapture     ErrorCode = "capture"
	ErrorCodeConversion  ErrorCode = "conversion"
	ErrorCodeRecognition ErrorCode = "recognition"
)

// PermissionKind names an OS-level grant the pipeline depends on.
type PermissionKind string

const (
	PermissionSpeech       PermissionKind = "speech"
	PermissionAudioCapture PermissionKind = "audio_capture"
)

// PermissionState is the current authorization status for one kind.
type PermissionState string

const (
	PermissionUnknown PermissionState = "unknown"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// PermissionDeniedError identifies which grant was refused.
type PermissionDeniedError struct {
	Kind PermissionKind
}

func (e *PermissionDeniedError) Error() string {
	return string(e.Kind) + " permission denied"
}

// SampleEncoding identifies the PCM sample layout of a buffer.
type SampleEncoding string

const (
	EncodingS16LE SampleEncoding = "s16le"
	EncodingF32LE SampleEncoding = "f32le"
)

// BytesPerSample returns the per-sample width, or 0 for unknown encodings.
func (e SampleEncoding) BytesPerSample() int {
	switch e {
	case EncodingS16LE:
		return 2
	case EncodingF32LE:
		return 4
	default:
		return 0
	}
}

// AudioFormat describes the PCM layout of captured audio.
type AudioFormat struct {
	Encoding   SampleEncoding
	SampleRate int
	Channels   int
}

// Valid reports whether the format is a usable descriptor.
func (f AudioFormat) Valid() bool {
	return f.Encoding.BytesPerSample() > 0 && f.SampleRate > 0 && f.Channels > 0
}

// BytesPerFrame is the byte width of one frame across all channels.
func (f AudioFormat) BytesPerFrame() int {
	return f.Encoding.BytesPerSample() * f.Channels
}

// AudioBuffer is one immutable chunk of PCM audio. Producers hand buffers
// off and must not retain or mutate them after emission.
type AudioBuffer struct {
	Format AudioFormat
	Frames int
	Data   []byte
}

// TranscriptKind identifies whether a recognition result is partial or final.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent is one incremental recognition result. Partial text is
// subject to revision by the next event; final text ends the session.
type TranscriptEvent struct {
	Kind TranscriptKind `json:"kind"`
	Text string         `json:"text"`
}

// Final reports whether the event terminates its recognition session.
func (e TranscriptEvent) Final() bool {
	return e.Kind == TranscriptKindFinal
}

// Status summarizes the current runtime status for the UI.
type Status struct {
	State      SessionState `json:"state"`
	Recording  bool         `json:"recording"`
	Transcript string       `json:"transcript"`
	Message    string       `json:"message,omitempty"`
	Source     string       `json:"source,omitempty"`
}
