package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for voicenote.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Session  SessionConfig
	Folders  FoldersConfig
	Log      LogConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
}

type SessionConfig struct {
	Locale       string
	RestartDelay time.Duration
}

type FoldersConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	configDir := filepath.Join(home, ".config", "voicenote")
	foldersPath := strings.TrimSpace(os.Getenv("VOICENOTE_FOLDERS_FILE"))
	if foldersPath == "" {
		foldersPath = firstExisting(
			filepath.Join(configDir, "folders.yaml"),
			filepath.Join(configDir, "folders.yml"),
		)
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOICENOTE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOICENOTE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("VOICENOTE_AUDIO_INPUT_DEVICE"),
				os.Getenv("DEEPGRAM_PULSE_SOURCE"),
				"default",
			),
			SampleRate: envOrDefaultInt("VOICENOTE_SAMPLE_RATE", 16000),
			Channels:   envOrDefaultInt("VOICENOTE_CHANNELS", 1),
			ChunkSize:  envOrDefaultInt("VOICENOTE_AUDIO_CHUNK_SIZE", 4096),
		},
		Session: SessionConfig{
			Locale: firstNonEmpty(
				os.Getenv("VOICENOTE_LOCALE"),
				os.Getenv("DEEPGRAM_LANGUAGE"),
				"en-US",
			),
			RestartDelay: time.Duration(nonNegativeInt("VOICENOTE_RESTART_DELAY_MS", 300)) * time.Millisecond,
		},
		Folders: FoldersConfig{
			Path: foldersPath,
		},
		Log: LogConfig{
			Level: strings.ToLower(envOrDefault("VOICENOTE_LOG_LEVEL", "info")),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}

	return cfg, nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func nonNegativeInt(key string, fallback int) int {
	parsed := envOrDefaultInt(key, fallback)
	if parsed < 0 {
		return fallback
	}
	return parsed
}
