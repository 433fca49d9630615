package tracking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/sitewarden/internal/policy"
)

// Scheduler drives the engine's periodic tick. It is deliberately dumb:
// the engine rebases timestamps itself, so a late or missed firing never
// accumulates drift, and gaps beyond the flush cap are dropped by the
// engine rather than compensated here.
type Scheduler struct {
	engine   *Engine
	period   time.Duration
	clock    policy.Clock
	logger   zerolog.Logger
	stopChan chan struct{}
}

// NewScheduler creates a tick scheduler for the engine.
func NewScheduler(engine *Engine, period time.Duration, logger zerolog.Logger) *Scheduler {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	return &Scheduler{
		engine:   engine,
		period:   period,
		clock:    policy.RealClock{},
		logger:   logger.With().Str("component", "tick-scheduler").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	go s.run()
	s.logger.Info().
		Dur("period", s.period).
		Msg("Tick scheduler started")
}

// Stop cancels the periodic tick.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.logger.Info().Msg("Tick scheduler stopped")
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.engine.Tick(context.Background(), s.clock.Now())
		case <-s.stopChan:
			return
		}
	}
}
