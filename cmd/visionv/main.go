// Command visionv is the main entry point for the visionv narration server.
//
// It connects to a vision service over WebSocket, refines the incoming scene
// descriptions, and speaks them through a local audio device using the
// configured TTS provider.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/VamshiS123/visionv/internal/app"
	"github.com/VamshiS123/visionv/internal/config"
	"github.com/VamshiS123/visionv/internal/observe"
	"github.com/VamshiS123/visionv/internal/resilience"
	"github.com/VamshiS123/visionv/pkg/audio"
	audiomock "github.com/VamshiS123/visionv/pkg/audio/mock"
	"github.com/VamshiS123/visionv/pkg/audio/oto"
	"github.com/VamshiS123/visionv/pkg/provider/tts"
	"github.com/VamshiS123/visionv/pkg/provider/tts/elevenlabs"
	ttsmock "github.com/VamshiS123/visionv/pkg/provider/tts/mock"
	oaitts "github.com/VamshiS123/visionv/pkg/provider/tts/openai"
	"github.com/VamshiS123/visionv/pkg/provider/vision"
	visionmock "github.com/VamshiS123/visionv/pkg/provider/vision/mock"
	visionws "github.com/VamshiS123/visionv/pkg/provider/vision/websocket"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Environment variables from .env complement the YAML config; useful for
	// keeping API keys out of the config file.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "visionv: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "visionv: %v\n", err)
		}
		return 1
	}

	// Logger with a hot-reloadable level.
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("visionv starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"tts", cfg.TTS.Name,
		"vision_url", cfg.Vision.URL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics.
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "visionv"})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// Providers.
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// Config hot reload: only the log level is applied live; everything else
	// requires a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.VoiceChanged || d.NarrationChanged {
			slog.Warn("voice or narration settings changed; restart to apply")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	application, err := app.New(cfg, providers, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// slogLevel maps a config log level to its slog equivalent.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── TTS ───────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(cfg *config.Config) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if cfg.TTS.Model != "" {
			opts = append(opts, elevenlabs.WithModel(cfg.TTS.Model))
		}
		if cfg.TTS.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(cfg.TTS.BaseURL))
		}
		return elevenlabs.New(cfg.TTS.APIKey, opts...)
	})

	reg.RegisterTTS("openai", func(cfg *config.Config) (tts.Provider, error) {
		var opts []oaitts.Option
		if cfg.TTS.Model != "" {
			opts = append(opts, oaitts.WithModel(cfg.TTS.Model))
		}
		if cfg.TTS.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(cfg.TTS.BaseURL))
		}
		return oaitts.New(cfg.TTS.APIKey, opts...)
	})

	reg.RegisterTTS("mock", func(*config.Config) (tts.Provider, error) {
		return &ttsmock.Provider{Audio: make([]byte, 3200)}, nil
	})

	// ── Audio ─────────────────────────────────────────────────────────────

	reg.RegisterAudio("oto", func(cfg *config.Config) (audio.Player, error) {
		return oto.New(cfg.Voice.SampleRate)
	})

	reg.RegisterAudio("mock", func(*config.Config) (audio.Player, error) {
		return &audiomock.Player{AutoFinish: true}, nil
	})

	// ── Vision ────────────────────────────────────────────────────────────

	reg.RegisterVision("websocket", func(cfg *config.Config) (vision.Client, error) {
		var opts []visionws.Option
		if cfg.Vision.ReconnectMinMs > 0 || cfg.Vision.ReconnectMaxMs > 0 {
			opts = append(opts, visionws.WithBackoff(cfg.Vision.ReconnectMin(), cfg.Vision.ReconnectMax()))
		}
		return visionws.New(cfg.Vision.URL, opts...), nil
	})

	reg.RegisterVision("mock", func(*config.Config) (vision.Client, error) {
		return visionmock.New(), nil
	})
}

// buildProviders instantiates the provider set selected by the config.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	c := *cfg
	if c.TTS.Name == "" {
		slog.Warn("tts.name is empty; using the mock TTS provider")
		c.TTS.Name = "mock"
	}
	if c.Audio.Name == "" {
		c.Audio.Name = "oto"
	}

	ttsProvider, err := reg.CreateTTS(&c)
	if err != nil {
		return nil, fmt.Errorf("tts provider: %w", err)
	}

	if c.TTSFallback.Name != "" {
		fbCfg := c
		fbCfg.TTS = c.TTSFallback
		fallback, err := reg.CreateTTS(&fbCfg)
		if err != nil {
			return nil, fmt.Errorf("tts fallback provider: %w", err)
		}
		failover := resilience.NewTTSFailover(ttsProvider, c.TTS.Name, resilience.CircuitBreakerConfig{})
		failover.AddFallback(c.TTSFallback.Name, fallback)
		ttsProvider = failover
		slog.Info("tts failover enabled", "primary", c.TTS.Name, "fallback", c.TTSFallback.Name)
	}

	player, err := reg.CreateAudio(&c)
	if err != nil {
		return nil, fmt.Errorf("audio player: %w", err)
	}

	visionName := "websocket"
	if c.Vision.URL == "" {
		visionName = "mock"
		slog.Warn("vision.url is empty; using the mock vision client")
	}
	client, err := reg.CreateVision(visionName, &c)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &app.Providers{TTS: ttsProvider, Audio: player, Vision: client}, nil
}
