package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// (listen address, API keys, audio parameters) requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// InstructionsChanged means the assistant persona changed. It takes
	// effect on the next session start; the active session keeps its setup.
	InstructionsChanged bool

	// VoiceChanged means the live voice selection changed. Like instructions,
	// it applies to the next session.
	VoiceChanged bool

	// ConfirmGatedChanged means the confirm-gated directive set changed.
	ConfirmGatedChanged bool
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.InstructionsChanged || d.VoiceChanged || d.ConfirmGatedChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Assistant.Instructions != new.Assistant.Instructions {
		d.InstructionsChanged = true
	}
	if old.Live.Voice != new.Live.Voice {
		d.VoiceChanged = true
	}
	if !slices.Equal(old.Dispatch.ConfirmGated, new.Dispatch.ConfirmGated) {
		d.ConfirmGatedChanged = true
	}

	return d
}
