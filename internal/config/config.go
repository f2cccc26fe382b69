// Package config provides the configuration schema, loader, provider
// registry, and hot-reload watcher for the visionv narration service.
package config

import "time"

// LogLevel controls log verbosity for the visionv server.
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

// Config is the root configuration structure for visionv.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig  `yaml:"server"`
	Vision VisionConfig  `yaml:"vision"`
	TTS    ProviderEntry `yaml:"tts"`

	// TTSFallback optionally names a second TTS provider used when the
	// primary's circuit breaker opens.
	TTSFallback ProviderEntry `yaml:"tts_fallback"`

	Audio     ProviderEntry   `yaml:"audio"`
	Voice     VoiceConfig     `yaml:"voice"`
	Narration NarrationConfig `yaml:"narration"`
}

// ServerConfig holds network and logging settings for the visionv server.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server (health, metrics)
	// listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// VisionConfig describes the upstream vision service delivering raw scene
// descriptions.
type VisionConfig struct {
	// URL is the websocket endpoint of the vision service
	// (e.g., "ws://localhost:9090/descriptions").
	URL string `yaml:"url"`

	// ReconnectMinMs and ReconnectMaxMs bound the exponential backoff used
	// when the connection drops. Zero values use the client defaults.
	ReconnectMinMs int `yaml:"reconnect_min_ms"`
	ReconnectMaxMs int `yaml:"reconnect_max_ms"`
}

// ReconnectMin returns the minimum reconnect backoff as a duration.
func (v VisionConfig) ReconnectMin() time.Duration {
	return time.Duration(v.ReconnectMinMs) * time.Millisecond
}

// ReconnectMax returns the maximum reconnect backoff as a duration.
func (v VisionConfig) ReconnectMax() time.Duration {
	return time.Duration(v.ReconnectMaxMs) * time.Millisecond
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "elevenlabs", "openai", "oto").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "eleven_flash_v2_5", "gpt-4o-mini-tts").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// VoiceConfig specifies the TTS voice parameters for the narrator.
type VoiceConfig struct {
	// VoiceID is the provider-specific voice identifier.
	VoiceID string `yaml:"voice_id"`

	// AudioFormat is the provider-specific output format
	// (e.g., "pcm_16000"). Empty uses the provider default.
	AudioFormat string `yaml:"audio_format"`

	// SampleRate is the output sample rate in Hz. Zero uses 16000.
	SampleRate int `yaml:"sample_rate"`

	// PitchShift adjusts pitch in the range [-10, +10]. 0 means default.
	PitchShift float64 `yaml:"pitch_shift"`

	// SpeedFactor adjusts speaking rate in the range [0.5, 2.0]. 0 means default.
	SpeedFactor float64 `yaml:"speed_factor"`
}

// NarrationConfig holds the timing and threshold knobs of the narration
// pipeline. All durations are expressed in milliseconds in the YAML file.
// Zero values fall back to the pipeline defaults.
type NarrationConfig struct {
	// TransitionDelayMs is the debounce applied to raw descriptions before
	// refinement. Default 500.
	TransitionDelayMs int `yaml:"transition_delay_ms"`

	// ContextSize is the number of recent descriptions retained for
	// transition classification. Default 5.
	ContextSize int `yaml:"context_size"`

	// SignificanceThreshold is the similarity score below which a new
	// description counts as a scene change. Default 0.7.
	SignificanceThreshold float64 `yaml:"significance_threshold"`

	// BatchIntervalMs is the period of the speech batch flush. Default 3000.
	BatchIntervalMs int `yaml:"batch_interval_ms"`

	// DedupeWindowMs is how long a spoken utterance suppresses duplicates.
	// Default 6000.
	DedupeWindowMs int `yaml:"dedupe_window_ms"`

	// MinSpeechDurationMs is the audible floor before critical observations
	// may interrupt. Default 500.
	MinSpeechDurationMs int `yaml:"min_speech_duration_ms"`

	// SettleDelayMs separates a stop from the replacement utterance.
	// Default 150.
	SettleDelayMs int `yaml:"settle_delay_ms"`
}

// TransitionDelay returns the debounce delay as a duration, or zero when
// unset.
func (n NarrationConfig) TransitionDelay() time.Duration {
	return time.Duration(n.TransitionDelayMs) * time.Millisecond
}

// BatchInterval returns the flush period as a duration, or zero when unset.
func (n NarrationConfig) BatchInterval() time.Duration {
	return time.Duration(n.BatchIntervalMs) * time.Millisecond
}

// DedupeWindow returns the dedupe window as a duration, or zero when unset.
func (n NarrationConfig) DedupeWindow() time.Duration {
	return time.Duration(n.DedupeWindowMs) * time.Millisecond
}

// MinSpeechDuration returns the audible floor as a duration, or zero when
// unset.
func (n NarrationConfig) MinSpeechDuration() time.Duration {
	return time.Duration(n.MinSpeechDurationMs) * time.Millisecond
}

// SettleDelay returns the settle delay as a duration, or zero when unset.
func (n NarrationConfig) SettleDelay() time.Duration {
	return time.Duration(n.SettleDelayMs) * time.Millisecond
}

// Default returns a config with the documented defaults filled in. Loading a
// file merges on top of these values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Voice: VoiceConfig{
			SampleRate: 16000,
		},
		Narration: NarrationConfig{
			TransitionDelayMs:     500,
			ContextSize:           5,
			SignificanceThreshold: 0.7,
			BatchIntervalMs:       3000,
			DedupeWindowMs:        6000,
			MinSpeechDurationMs:   500,
			SettleDelayMs:         150,
		},
	}
}
