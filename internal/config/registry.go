package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/VamshiS123/visionv/pkg/audio"
	"github.com/VamshiS123/visionv/pkg/provider/tts"
	"github.com/VamshiS123/visionv/pkg/provider/vision"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tts    map[string]func(*Config) (tts.Provider, error)
	audio  map[string]func(*Config) (audio.Player, error)
	vision map[string]func(*Config) (vision.Client, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		tts:    make(map[string]func(*Config) (tts.Provider, error)),
		audio:  make(map[string]func(*Config) (audio.Player, error)),
		vision: make(map[string]func(*Config) (vision.Client, error)),
	}
}

// RegisterTTS registers a TTS provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTTS(name string, factory func(*Config) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterAudio registers an audio player factory under name.
func (r *Registry) RegisterAudio(name string, factory func(*Config) (audio.Player, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// RegisterVision registers a vision client factory under name.
func (r *Registry) RegisterVision(name string, factory func(*Config) (vision.Client, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vision[name] = factory
}

// CreateTTS instantiates a TTS provider using the factory registered under
// cfg.TTS.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateTTS(cfg *Config) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[cfg.TTS.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts %q", ErrProviderNotRegistered, cfg.TTS.Name)
	}
	return factory(cfg)
}

// CreateAudio instantiates an audio player using the factory registered under
// cfg.Audio.Name.
func (r *Registry) CreateAudio(cfg *Config) (audio.Player, error) {
	r.mu.RLock()
	factory, ok := r.audio[cfg.Audio.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio %q", ErrProviderNotRegistered, cfg.Audio.Name)
	}
	return factory(cfg)
}

// CreateVision instantiates a vision client using the factory registered
// under the "vision" options name. The vision transport is selected by URL
// scheme in practice, so the name defaults to "websocket".
func (r *Registry) CreateVision(name string, cfg *Config) (vision.Client, error) {
	r.mu.RLock()
	factory, ok := r.vision[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vision %q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}
