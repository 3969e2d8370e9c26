package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores runtime configuration for the transcription pipeline.
type Config struct {
	Recognizer RecognizerConfig `mapstructure:"recognizer"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type RecognizerConfig struct {
	APIKey      string `mapstructure:"api_key"`
	APIBaseURL  string `mapstructure:"api_base_url"`
	Model       string `mapstructure:"model"`
	Language    string `mapstructure:"language"`
	SmartFormat bool   `mapstructure:"smart_format"`
}

type AudioConfig struct {
	FFmpegCommand   string `mapstructure:"ffmpeg_command"`
	SampleRate      int    `mapstructure:"sample_rate"`
	Channels        int    `mapstructure:"channels"`
	ChunkFrames     int    `mapstructure:"chunk_frames"`
	PreferredSource string `mapstructure:"preferred_source"`
	MonitorDevice   string `mapstructure:"monitor_device"`
	InputDevice     string `mapstructure:"input_device"`
}

type EngineConfig struct {
	MaxRestartFailures int           `mapstructure:"max_restart_failures"`
	RestartBackoff     time.Duration `mapstructure:"restart_backoff"`
}

type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
	JSON    bool `mapstructure:"json"`
}

// Load resolves configuration from an optional config file, DESKSCRIBE_*
// environment variables, and defaults.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("recognizer.api_base_url", "https://api.deepgram.com/v1")
	v.SetDefault("recognizer.model", "nova-2")
	v.SetDefault("recognizer.language", "en-US")
	v.SetDefault("recognizer.smart_format", true)
	v.SetDefault("audio.ffmpeg_command", "ffmpeg")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.chunk_frames", 1024)
	v.SetDefault("audio.preferred_source", "system")
	v.SetDefault("engine.max_restart_failures", 3)
	v.SetDefault("engine.restart_backoff", 250*time.Millisecond)
	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.json", false)

	v.SetEnvPrefix("DESKSCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The common provider variable works without the prefix too.
	_ = v.BindEnv("recognizer.api_key", "DESKSCRIBE_RECOGNIZER_API_KEY", "DEEPGRAM_API_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	applyBounds(&cfg)
	return cfg, nil
}

func applyBounds(cfg *Config) {
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkFrames < 64 {
		cfg.Audio.ChunkFrames = 1024
	}
	if cfg.Engine.MaxRestartFailures <= 0 {
		cfg.Engine.MaxRestartFailures = 3
	}
	if cfg.Engine.RestartBackoff < 0 {
		cfg.Engine.RestartBackoff = 0
	}
	if cfg.Recognizer.Language == "" {
		cfg.Recognizer.Language = "en-US"
	}
}
