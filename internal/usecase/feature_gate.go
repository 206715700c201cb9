package usecase

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"voicenote/internal/domain"
	"voicenote/internal/ports"
)

const defaultProbeTimeout = 2 * time.Second

// FeatureGate decides whether dictation may start and warns about environments
// that tend to block the microphone.
type FeatureGate struct {
	capability  ports.CapabilityProbe
	environment ports.EnvironmentProbe
	scheduler   ports.Scheduler
	events      ports.EventSink
	logger      *log.Logger
	timeout     time.Duration
}

func NewFeatureGate(
	capability ports.CapabilityProbe,
	environment ports.EnvironmentProbe,
	scheduler ports.Scheduler,
	events ports.EventSink,
	logger *log.Logger,
) *FeatureGate {
	if logger == nil {
		logger = log.Default()
	}
	return &FeatureGate{
		capability:  capability,
		environment: environment,
		scheduler:   scheduler,
		events:      events,
		logger:      logger.WithPrefix("gate"),
		timeout:     defaultProbeTimeout,
	}
}

// IsAvailable reports whether a speech-recognition capability is present.
func (g *FeatureGate) IsAvailable() bool {
	return g.capability != nil && g.capability.Available()
}

// WarnIfRestrictedEnvironment runs the environment heuristic in the background.
// A positive result is delivered as an advisory on the scheduler; failures are
// dropped.
func (g *FeatureGate) WarnIfRestrictedEnvironment() {
	if g.environment == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		restricted, err := g.environment.Restricted(ctx)
		if err != nil {
			g.logger.Debug("environment probe failed", "err", err)
			return
		}
		if !restricted {
			return
		}
		g.scheduler.Post(func() {
			g.logger.Warn("environment may block microphone access")
			g.events.Advisory(domain.AdvisoryRestrictedEnvironment)
		})
	}()
}
