// Package config provides the configuration schema and loader for the
// speechwire CLI.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Session SessionConfig `yaml:"session"`
	Server  ServerConfig  `yaml:"server"`
}

// ClientConfig holds connection settings for the inference endpoint.
type ClientConfig struct {
	// APIKey is the bearer token for the inference service. Prefer APIKeyEnv
	// over embedding secrets in config files.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv names an environment variable to read the key from when
	// APIKey is empty (e.g., "DASHSCOPE_API_KEY").
	APIKeyEnv string `yaml:"api_key_env"`

	// Endpoint overrides the default WebSocket endpoint. Leave empty to use
	// the service default.
	Endpoint string `yaml:"endpoint"`

	// Model selects the recognition model (e.g., "gummy-realtime-v1").
	Model string `yaml:"model"`

	// ChunkSize is the audio frame size in bytes. 0 uses the client default.
	ChunkSize int `yaml:"chunk_size"`

	// DisablePacing turns off the real-time frame pacing delay. Only useful
	// for offline testing; production should keep pacing on.
	DisablePacing bool `yaml:"disable_pacing"`
}

// SessionConfig holds per-session recognition parameters.
type SessionConfig struct {
	// TargetLang is the translation target language (e.g., "en", "ja").
	TargetLang string `yaml:"target_lang"`

	// SourceLang is the spoken language. Empty means auto detection.
	SourceLang string `yaml:"source_lang"`

	// SampleRate in Hz. Only used for raw PCM input; WAV input carries its
	// own sample rate.
	SampleRate int `yaml:"sample_rate"`

	// Format is the audio encoding tag ("pcm", "opus", "opu").
	Format string `yaml:"format"`

	// MaxEndSilenceMs is the trailing-silence threshold in milliseconds.
	MaxEndSilenceMs int `yaml:"max_end_silence_ms"`

	// DisableITN turns off inverse text normalization.
	DisableITN bool `yaml:"disable_itn"`
}

// ServerConfig holds logging and observability settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address for the Prometheus /metrics endpoint
	// (e.g., ":9090"). Empty disables the metrics listener.
	MetricsAddr string `yaml:"metrics_addr"`
}
