// Package app wires all visionv subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects the
// transition engine, the speech scheduler, the vision session, and the HTTP
// server for health and metrics; Run executes everything until the context
// is cancelled; Shutdown tears it down in order.
//
// For testing, inject mock implementations via the [Providers] struct.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/VamshiS123/visionv/internal/config"
	"github.com/VamshiS123/visionv/internal/health"
	"github.com/VamshiS123/visionv/internal/observe"
	"github.com/VamshiS123/visionv/internal/speech"
	"github.com/VamshiS123/visionv/internal/transition"
	"github.com/VamshiS123/visionv/pkg/audio"
	"github.com/VamshiS123/visionv/pkg/provider/tts"
	"github.com/VamshiS123/visionv/pkg/provider/vision"
)

// shutdownTimeout bounds the HTTP server drain during shutdown.
const shutdownTimeout = 5 * time.Second

// Providers holds one interface value per provider slot. Populated by
// main.go via the config registry, or by tests with mocks.
type Providers struct {
	TTS    tts.Provider
	Audio  audio.Player
	Vision vision.Client
}

// App owns all subsystem lifetimes and orchestrates the narration pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers
	log       *slog.Logger

	metrics   *observe.Metrics
	engine    *transition.Engine
	scheduler *speech.Scheduler
	session   *Session
	httpSrv   *http.Server

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.TTS == nil || providers.Audio == nil || providers.Vision == nil {
		return nil, errors.New("app: tts, audio, and vision providers are all required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}
	a.metrics = metrics

	a.engine = transition.New(
		transition.WithTransitionDelay(cfg.Narration.TransitionDelay()),
		transition.WithContextSize(cfg.Narration.ContextSize),
		transition.WithSignificanceThreshold(cfg.Narration.SignificanceThreshold),
		transition.WithLogger(a.log),
	)

	a.scheduler = speech.NewScheduler(providers.TTS, providers.Audio,
		speech.WithVoice(tts.Voice{
			ID:         cfg.Voice.VoiceID,
			Format:     cfg.Voice.AudioFormat,
			SampleRate: cfg.Voice.SampleRate,
			Pitch:      cfg.Voice.PitchShift,
			Rate:       cfg.Voice.SpeedFactor,
		}),
		speech.WithBatchInterval(cfg.Narration.BatchInterval()),
		speech.WithDedupeWindow(cfg.Narration.DedupeWindow()),
		speech.WithMinSpeechDuration(cfg.Narration.MinSpeechDuration()),
		speech.WithSettleDelay(cfg.Narration.SettleDelay()),
		speech.WithMetrics(metrics),
		speech.WithLogger(a.log),
	)

	a.session = NewSession(providers.Vision, a.engine, a.scheduler, metrics, a.log)
	a.httpSrv = a.buildHTTPServer()

	return a, nil
}

// buildHTTPServer assembles the health and metrics endpoints. Readiness
// follows the scheduler: once it is stopped the single audio channel is gone
// and the service cannot narrate.
func (a *App) buildHTTPServer() *http.Server {
	probes := health.New(a.log)
	probes.Add("scheduler", func(context.Context) error {
		if a.scheduler.Stopped() {
			return errors.New("speech scheduler stopped")
		}
		return nil
	})

	mux := http.NewServeMux()
	probes.Routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and the vision session, blocking until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", "addr", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.session.Run(ctx); err != nil {
			return fmt.Errorf("app: vision session: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the scheduler and drains the HTTP server. Safe to call more
// than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.engine.CancelPendingTransition()
		a.scheduler.Stop()
		if serr := a.httpSrv.Shutdown(ctx); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			err = serr
		}
		a.log.Info("application stopped")
	})
	return err
}

// SpeakNow bypasses the whole pipeline and speaks text immediately,
// interrupting whatever is playing. Exposed for operator-triggered
// announcements.
func (a *App) SpeakNow(text string) error {
	return a.scheduler.SpeakNow(text)
}
