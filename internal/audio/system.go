package audio

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"deskscribe/internal/domain"
	"deskscribe/internal/ports"
)

// monitorChannels is the layout delivered by a sink monitor tap. The mix is
// captured as float stereo and normalized downstream.
const monitorChannels = 2

// SystemCapture taps the desktop's audio mix through the default output
// sink's monitor source: everything currently playing, independent of any
// particular application.
type SystemCapture struct {
	command string
	device  string
	lister  *deviceLister
	log     *zap.Logger
}

// NewSystemCapture builds the system-mix source. monitorDevice pins a
// specific monitor source; empty means follow the default output sink.
func NewSystemCapture(ffmpegCommand, monitorDevice string, log *zap.Logger) *SystemCapture {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemCapture{
		command: ffmpegCommand,
		device:  monitorDevice,
		lister:  newDeviceLister(""),
		log:     log.Named("system_capture"),
	}
}

func (c *SystemCapture) Name() string { return "system" }

// Available reports whether the monitor-tap backend exists on this host.
// A pinned monitor device needs no enumeration, only the capture command.
func (c *SystemCapture) Available() bool {
	if !commandAvailable(firstNonEmpty(c.command, "ffmpeg")) {
		return false
	}
	return c.device != "" || c.lister.available()
}

func (c *SystemCapture) Open(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureStream, error) {
	device := firstNonEmpty(cfg.Device, c.device)
	if device == "" {
		sinks, err := c.lister.outputSinks(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStreamCreation, err)
		}
		if len(sinks) == 0 {
			return nil, domain.ErrNoOutputSink
		}

		sink, err := c.lister.defaultSink(ctx)
		if err != nil || sink == "" {
			sink = sinks[0]
		}
		device = sink + ".monitor"
	}

	format := domain.AudioFormat{
		Encoding:   domain.EncodingF32LE,
		SampleRate: cfg.SampleRate,
		Channels:   monitorChannels,
	}

	args := append(baseFFmpegArgs(device), outputFFmpegArgs(format)...)
	c.log.Info("opening system audio capture",
		zap.String("device", device),
		zap.Int("sample_rate", format.SampleRate))

	stream, err := openFFmpegStream(ctx, c.command, args, format, cfg.ChunkSize, c.log)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
