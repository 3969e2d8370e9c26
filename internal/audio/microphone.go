package audio

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"deskscribe/internal/domain"
	"deskscribe/internal/ports"
)

// MicCapture taps a physical or wireless input device. Fallback source for
// hosts where the system-mix monitor backend is unavailable. The tap is
// already in the recognizer's native layout, so no conversion work remains
// beyond validation.
type MicCapture struct {
	command string
	device  string
	lister  *deviceLister
	log     *zap.Logger
}

// NewMicCapture builds the microphone source. inputDevice pins a specific
// input; empty means pick the best available one at open time.
func NewMicCapture(ffmpegCommand, inputDevice string, log *zap.Logger) *MicCapture {
	if log == nil {
		log = zap.NewNop()
	}
	return &MicCapture{
		command: ffmpegCommand,
		device:  inputDevice,
		lister:  newDeviceLister(""),
		log:     log.Named("mic_capture"),
	}
}

func (c *MicCapture) Name() string { return "microphone" }

func (c *MicCapture) Available() bool {
	return commandAvailable(firstNonEmpty(c.command, "ffmpeg"))
}

func (c *MicCapture) Open(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureStream, error) {
	device := firstNonEmpty(cfg.Device, c.device)
	if device == "" && c.lister.available() {
		sources, err := c.lister.inputSources(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStreamCreation, err)
		}
		device = pickInputDevice(sources)
		if device == "" {
			return nil, domain.ErrNoInputDevice
		}
	}
	if device == "" {
		device = "default"
	}

	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	format := domain.AudioFormat{
		Encoding:   domain.EncodingS16LE,
		SampleRate: cfg.SampleRate,
		Channels:   channels,
	}

	args := append(baseFFmpegArgs(device), outputFFmpegArgs(format)...)
	c.log.Info("opening microphone capture",
		zap.String("device", device),
		zap.Int("sample_rate", format.SampleRate))

	stream, err := openFFmpegStream(ctx, c.command, args, format, cfg.ChunkSize, c.log)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
