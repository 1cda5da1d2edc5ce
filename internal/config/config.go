// Package config provides the configuration schema, loader, and file watcher
// for the Droidvox voice assistant server.
package config

// LogLevel controls log verbosity for the Droidvox server.
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

// Config is the root configuration structure for Droidvox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Live       LiveConfig       `yaml:"live"`
	Oneshot    OneshotConfig    `yaml:"oneshot"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Audio      AudioConfig      `yaml:"audio"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// ServerConfig holds network and logging settings for the Droidvox server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// LiveConfig configures the realtime voice session backend.
type LiveConfig struct {
	// APIKey authenticates against the Gemini Live API.
	APIKey string `yaml:"api_key"`

	// Model selects the live model. Empty selects the provider default.
	Model string `yaml:"model"`

	// BaseURL overrides the WebSocket endpoint. Primarily for testing.
	BaseURL string `yaml:"base_url"`

	// Voice selects the prebuilt voice for synthesised speech.
	Voice string `yaml:"voice"`

	// ConnectTimeoutSeconds bounds session establishment. Zero selects the
	// default of 15 seconds.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
}

// OneshotConfig configures request/response generation outside the live
// session. An empty APIKey falls back to the live API key.
type OneshotConfig struct {
	APIKey      string `yaml:"api_key"`
	ChatModel   string `yaml:"chat_model"`
	SpeechModel string `yaml:"speech_model"`
	ImageModel  string `yaml:"image_model"`
	VideoModel  string `yaml:"video_model"`
}

// AssistantConfig holds the assistant persona.
type AssistantConfig struct {
	// Instructions is the system prompt injected at session setup. It defines
	// the assistant's language, persona, and the directive tag vocabulary.
	Instructions string `yaml:"instructions"`
}

// AudioConfig holds PCM stream parameters.
type AudioConfig struct {
	// CaptureSampleRate is the microphone PCM rate in Hz. Zero selects 16000.
	CaptureSampleRate int `yaml:"capture_sample_rate"`

	// FrameSamples is the number of samples per uploaded frame. Zero selects
	// 4096.
	FrameSamples int `yaml:"frame_samples"`
}

// DispatchConfig holds directive-dispatch policy.
type DispatchConfig struct {
	// ConfirmGated overrides the default set of directive names that require
	// explicit user approval before taking effect. Nil keeps the default set.
	ConfirmGated []string `yaml:"confirm_gated"`

	// AuditLimit bounds the retained audit entries. Zero selects 64.
	AuditLimit int `yaml:"audit_limit"`
}

// TranscriptConfig holds transcript retention settings.
type TranscriptConfig struct {
	// HistoryLimit bounds retained finalized turns. Zero selects 256.
	HistoryLimit int `yaml:"history_limit"`
}
