package app

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/VamshiS123/visionv/internal/observe"
	"github.com/VamshiS123/visionv/internal/speech"
	"github.com/VamshiS123/visionv/internal/transition"
	"github.com/VamshiS123/visionv/pkg/narration"
	"github.com/VamshiS123/visionv/pkg/provider/vision"
)

// Session connects one vision description stream to the narration pipeline:
// raw descriptions pass a significance gate, get debounced and refined by the
// transition engine, and land in the speech scheduler as observations.
type Session struct {
	vision    vision.Client
	engine    *transition.Engine
	scheduler *speech.Scheduler
	metrics   *observe.Metrics
	log       *slog.Logger
}

// NewSession wires the given components into a session. All arguments must be
// non-nil.
func NewSession(client vision.Client, engine *transition.Engine, scheduler *speech.Scheduler, metrics *observe.Metrics, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		vision:    client,
		engine:    engine,
		scheduler: scheduler,
		metrics:   metrics,
		log:       log,
	}
}

// Run starts the scheduler and consumes the vision stream until ctx is
// cancelled. On return the scheduler is stopped and the narration context is
// cleared, cancelling any pending transition with it.
func (s *Session) Run(ctx context.Context) error {
	s.scheduler.Start(ctx)
	defer s.scheduler.Stop()
	defer s.engine.ClearContext()

	return s.vision.Stream(ctx, s.handleDescription)
}

// handleDescription feeds one raw description into the pipeline. Descriptions
// that are not significantly different from the current narration context are
// dropped before they reach the debounce timer.
func (s *Session) handleDescription(d vision.Description) {
	if !s.engine.IsSignificantlyDifferent(d.Text, 0) {
		s.log.Debug("skipping insignificant description", "text", d.Text)
		return
	}

	priority := d.Priority
	s.engine.ProcessDescription(d.Text, func(rd narration.RefinedDescription) {
		s.metrics.Transitions.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("type", rd.Transition.String())))
		s.log.Debug("description refined",
			"transition", rd.Transition.String(),
			"priority", priority.String(),
			"text", rd.RefinedText,
		)

		err := s.scheduler.AddObservation(narration.Observation{
			Text:     rd.RefinedText,
			Priority: priority,
		})
		if err != nil {
			s.log.Warn("observation rejected", "error", err)
		}
	})
}
