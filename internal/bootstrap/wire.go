package bootstrap

import (
	"go.uber.org/zap"

	"deskscribe/internal/audio"
	"deskscribe/internal/config"
	"deskscribe/internal/domain"
	"deskscribe/internal/logging"
	"deskscribe/internal/permissions"
	"deskscribe/internal/ports"
	"deskscribe/internal/providers/deepgram"
	"deskscribe/internal/transcribe"
	"deskscribe/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.Controller
	Config     config.Config
	Logger     *zap.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, cfgFile string) (Services, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return Services{}, err
	}

	log, err := logging.New(logging.Options{Verbose: cfg.Logging.Verbose, JSON: cfg.Logging.JSON})
	if err != nil {
		return Services{}, err
	}

	gateway := permissions.NewGateway(log, map[domain.PermissionKind]permissions.Checker{
		domain.PermissionSpeech:       permissions.NewCredentialChecker(cfg.Recognizer.APIKey),
		domain.PermissionAudioCapture: permissions.NewPortalChecker(),
	})

	provider := deepgram.NewProvider(deepgram.Config{
		APIKey:      cfg.Recognizer.APIKey,
		APIBaseURL:  cfg.Recognizer.APIBaseURL,
		Model:       cfg.Recognizer.Model,
		Language:    cfg.Recognizer.Language,
		SmartFormat: cfg.Recognizer.SmartFormat,
	}, log)

	engine := transcribe.NewEngine(provider, transcribe.Config{
		Streaming: ports.StreamingConfig{
			SampleRate:     cfg.Audio.SampleRate,
			Channels:       1,
			Encoding:       "linear16",
			Language:       cfg.Recognizer.Language,
			InterimResults: true,
		},
		MaxRestartFailures: cfg.Engine.MaxRestartFailures,
		RestartBackoff:     cfg.Engine.RestartBackoff,
	}, log)

	controller := usecase.NewController(
		gateway,
		captureSources(cfg, log),
		audio.NewConverter(),
		engine,
		eventSink,
		usecase.Config{
			Capture: ports.CaptureConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				ChunkSize:  cfg.Audio.ChunkFrames,
			},
		},
		log,
	)

	return Services{Controller: controller, Config: cfg, Logger: log}, nil
}

// captureSources orders sources by the configured preference; whichever is
// available first wins at start time.
func captureSources(cfg config.Config, log *zap.Logger) []ports.CaptureSource {
	system := audio.NewSystemCapture(cfg.Audio.FFmpegCommand, cfg.Audio.MonitorDevice, log)
	mic := audio.NewMicCapture(cfg.Audio.FFmpegCommand, cfg.Audio.InputDevice, log)
	if cfg.Audio.PreferredSource == "microphone" {
		return []ports.CaptureSource{mic, system}
	}
	return []ports.CaptureSource{system, mic}
}
