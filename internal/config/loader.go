package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// KnownVoices lists the prebuilt voices the live backend offers.
// Used by [Validate] to warn about unrecognised voice names.
var KnownVoices = []string{
	"Puck", "Charon", "Kore", "Fenrir", "Aoede", "Leda", "Orus", "Zephyr",
}

// KnownDirectives lists every directive name in the assistant's command
// vocabulary. Used by [Validate] to warn about typos in dispatch.confirm_gated.
var KnownDirectives = []string{
	"WIFI_ON", "WIFI_OFF",
	"BLUETOOTH_ON", "BLUETOOTH_OFF",
	"FLASHLIGHT_ON", "FLASHLIGHT_OFF",
	"AIRPLANE_ON", "AIRPLANE_OFF",
	"VOLUME_UP", "VOLUME_DOWN",
	"MUTE", "UNMUTE",
	"BRIGHTNESS_UP", "BRIGHTNESS_DOWN",
	"LOCK", "UNLOCK",
	"CALL_CONTACT", "SEND_SMS", "SEND_WHATSAPP", "SEND_EMAIL",
	"DELETE_FILE", "UNINSTALL_APP",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Live session
	if cfg.Live.APIKey == "" {
		slog.Warn("live.api_key is empty; session start will fail against the real backend")
	}
	if cfg.Live.ConnectTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("live.connect_timeout_seconds %d must not be negative", cfg.Live.ConnectTimeoutSeconds))
	}
	if cfg.Live.Voice != "" && !slices.Contains(KnownVoices, cfg.Live.Voice) {
		slog.Warn("unknown voice name — may be a typo or a newly added voice",
			"voice", cfg.Live.Voice,
			"known", KnownVoices,
		)
	}

	// Audio
	if cfg.Audio.CaptureSampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.capture_sample_rate %d must not be negative", cfg.Audio.CaptureSampleRate))
	}
	if cfg.Audio.FrameSamples < 0 {
		errs = append(errs, fmt.Errorf("audio.frame_samples %d must not be negative", cfg.Audio.FrameSamples))
	}

	// Dispatch
	if cfg.Dispatch.AuditLimit < 0 {
		errs = append(errs, fmt.Errorf("dispatch.audit_limit %d must not be negative", cfg.Dispatch.AuditLimit))
	}
	for i, name := range cfg.Dispatch.ConfirmGated {
		if !slices.Contains(KnownDirectives, name) {
			errs = append(errs, fmt.Errorf("dispatch.confirm_gated[%d] %q is not a known directive", i, name))
		}
	}

	// Transcript
	if cfg.Transcript.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("transcript.history_limit %d must not be negative", cfg.Transcript.HistoryLimit))
	}

	return errors.Join(errs...)
}
