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

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"tts":    {"elevenlabs", "openai", "mock"},
	"audio":  {"oto", "mock"},
	"vision": {"websocket", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
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

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("tts", cfg.TTS.Name)
	validateProviderName("tts", cfg.TTSFallback.Name)
	validateProviderName("audio", cfg.Audio.Name)

	if cfg.TTS.Name == "" {
		slog.Warn("tts.name is empty; narration will not be audible")
	}

	if cfg.Voice.SpeedFactor != 0 {
		if cfg.Voice.SpeedFactor < 0.5 || cfg.Voice.SpeedFactor > 2.0 {
			errs = append(errs, fmt.Errorf("voice.speed_factor %.2f is out of range [0.5, 2.0]", cfg.Voice.SpeedFactor))
		}
	}
	if cfg.Voice.PitchShift < -10 || cfg.Voice.PitchShift > 10 {
		errs = append(errs, fmt.Errorf("voice.pitch_shift %.2f is out of range [-10, 10]", cfg.Voice.PitchShift))
	}
	if cfg.Voice.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("voice.sample_rate %d must not be negative", cfg.Voice.SampleRate))
	}

	n := cfg.Narration
	if n.TransitionDelayMs < 0 {
		errs = append(errs, fmt.Errorf("narration.transition_delay_ms %d must not be negative", n.TransitionDelayMs))
	}
	if n.ContextSize < 0 {
		errs = append(errs, fmt.Errorf("narration.context_size %d must not be negative", n.ContextSize))
	}
	if n.SignificanceThreshold < 0 || n.SignificanceThreshold > 1 {
		errs = append(errs, fmt.Errorf("narration.significance_threshold %.2f is out of range [0, 1]", n.SignificanceThreshold))
	}
	if n.BatchIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("narration.batch_interval_ms %d must not be negative", n.BatchIntervalMs))
	}
	if n.DedupeWindowMs < 0 {
		errs = append(errs, fmt.Errorf("narration.dedupe_window_ms %d must not be negative", n.DedupeWindowMs))
	}
	if n.MinSpeechDurationMs < 0 {
		errs = append(errs, fmt.Errorf("narration.min_speech_duration_ms %d must not be negative", n.MinSpeechDurationMs))
	}
	if n.SettleDelayMs < 0 {
		errs = append(errs, fmt.Errorf("narration.settle_delay_ms %d must not be negative", n.SettleDelayMs))
	}

	if cfg.Vision.ReconnectMinMs < 0 || cfg.Vision.ReconnectMaxMs < 0 {
		errs = append(errs, errors.New("vision reconnect backoff bounds must not be negative"))
	}
	if cfg.Vision.ReconnectMaxMs > 0 && cfg.Vision.ReconnectMaxMs < cfg.Vision.ReconnectMinMs {
		errs = append(errs, fmt.Errorf("vision.reconnect_max_ms %d is below vision.reconnect_min_ms %d", cfg.Vision.ReconnectMaxMs, cfg.Vision.ReconnectMinMs))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
