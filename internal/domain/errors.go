package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutputSink means no audio output sink exists to tap a system mix from.
	ErrNoOutputSink = errors.New("no audio output sink found")

	// ErrNoInputDevice means no usable microphone or headset input exists.
	ErrNoInputDevice = errors.New("no audio input device found")

	// ErrStreamCreation means the capture stream could not be constructed,
	// commonly a revoked permission racing with startup.
	ErrStreamCreation = errors.New("capture stream creation failed")

	// ErrStream means an established capture stream failed to start or died.
	ErrStream = errors.New("capture stream error")

	// ErrFormatUnavailable means a buffer carries no usable format descriptor.
	ErrFormatUnavailable = errors.New("audio format unavailable")

	// ErrDataUnavailable means a buffer's sample bytes cannot be retrieved.
	ErrDataUnavailable = errors.New("audio data unavailable")
)

// RecognitionError wraps an underlying diagnostic from the recognizer.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition error: %v", e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}
