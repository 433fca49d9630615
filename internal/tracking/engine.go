package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/sitewarden/internal/metrics"
	"github.com/goodtune/sitewarden/internal/policy"
	"github.com/goodtune/sitewarden/internal/storage"
	"github.com/goodtune/sitewarden/internal/window"
)

const (
	// DefaultTickPeriod is the nominal reconciliation interval.
	DefaultTickPeriod = 60 * time.Second

	// DefaultFlushCap bounds how much elapsed wall-clock time a single
	// flush may credit. Gaps beyond the cap are attributed to host
	// sleep or process suspension and dropped, never carried forward.
	// Must be strictly greater than the tick period; 1.5x leaves room
	// for one late tick without over-crediting.
	DefaultFlushCap = 90 * time.Second
)

// Config holds tracking engine configuration.
type Config struct {
	TickPeriod time.Duration
	FlushCap   time.Duration
}

// Engine is the focus-driven time accumulator. It tracks which domain is
// currently in focus and flushes elapsed time into the usage store on
// every transition and on each tick. The engine is a two-state machine:
// Idle (no active domain) and Tracking; ticks self-loop on Tracking with
// a flush and a rebase of the flush timestamp.
//
// The host may deliver focus changes and ticks concurrently, so the
// whole read-flush-write sequence runs under a mutex; interleaving two
// such sequences could double-flush or lose a transition.
type Engine struct {
	settings storage.SettingsStore
	usage    storage.UsageStore
	sessions storage.SessionStore
	cfg      Config
	clock    policy.Clock
	logger   zerolog.Logger

	mu      sync.Mutex
	session storage.TrackerSession
}

// NewEngine creates a tracking engine backed by the given store.
func NewEngine(store storage.Store, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.FlushCap <= cfg.TickPeriod {
		cfg.FlushCap = cfg.TickPeriod * 3 / 2
	}

	return &Engine{
		settings: store.Settings(),
		usage:    store.Usage(),
		sessions: store.Session(),
		cfg:      cfg,
		clock:    policy.RealClock{},
		logger:   logger.With().Str("component", "tracker").Logger(),
	}
}

// SetClock sets the clock used for stamping usage records (for testing).
func (e *Engine) SetClock(clock policy.Clock) {
	e.clock = clock
}

// Start loads the persisted tracker session. A missing or wiped session
// is not an error: the engine starts idle and waits for the host to
// report fresh focus.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, err := e.sessions.Get(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load tracker session: %w", err)
	}
	e.session = session

	e.logger.Info().
		Str("active_domain", session.ActiveDomain).
		Time("last_flush", session.LastFlush).
		Msg("Tracker session restored")
	return nil
}

// ActiveDomain returns the domain currently being tracked, or "" when idle.
func (e *Engine) ActiveDomain() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.ActiveDomain
}

// ReportFocusChange records a foreground transition: flush the previous
// domain, switch to the new one, persist. rawDomain may be a hostname, a
// full URL, or empty/non-web for focus loss; untrackable input lands the
// engine in Idle. Store failures skip the affected step (bounded loss of
// at most one interval) and never corrupt the session.
func (e *Engine) ReportFocusChange(ctx context.Context, rawDomain string, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.FocusChangesTotal.Inc()

	next, _ := Trackable(rawDomain)

	if err := e.flushLocked(ctx, now, "focus_change"); err != nil {
		e.logger.Warn().Err(err).
			Str("domain", e.session.ActiveDomain).
			Msg("Flush failed on focus change, time for this interval is lost")
	}

	e.session.ActiveDomain = next
	if next != "" {
		e.session.LastFlush = now
	} else {
		e.session.LastFlush = time.Time{}
	}

	e.persistLocked(ctx)

	e.logger.Debug().
		Str("domain", next).
		Msg("Focus changed")
}

// Tick reconciles the current domain without switching: flush, then
// rebase the flush timestamp to now (never to lastFlush+period, so
// scheduler drift and late wakeups never accumulate). Tick also retires
// an expired locked-in session. Safe to call with arbitrarily large or
// small gaps since the previous tick.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.TicksTotal.Inc()

	if err := e.flushLocked(ctx, now, "tick"); err != nil {
		e.logger.Warn().Err(err).
			Str("domain", e.session.ActiveDomain).
			Msg("Flush failed on tick, will retry next tick")
		// Leave LastFlush alone so the next tick retries this span
		// (still bounded by the flush cap).
	} else if e.session.ActiveDomain != "" {
		e.session.LastFlush = now
		e.persistLocked(ctx)
	}

	e.expireLockedIn(ctx, now)
}

// Flush performs a best-effort final flush, for shutdown or host suspend
// notifications. Failure is logged only; the next event after restart
// re-derives state from the persisted session.
func (e *Engine) Flush(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.flushLocked(ctx, now, "shutdown"); err != nil {
		e.logger.Warn().Err(err).Msg("Final flush failed")
		return
	}
	if e.session.ActiveDomain != "" {
		e.session.LastFlush = now
		e.persistLocked(ctx)
	}
}

// flushLocked credits elapsed time to the active domain. Credit is
// capped: any gap beyond the flush cap is dropped as suspension time.
// The reset window is applied to the domain's record before the write.
// Callers hold e.mu.
func (e *Engine) flushLocked(ctx context.Context, now time.Time, trigger string) error {
	if e.session.ActiveDomain == "" || e.session.LastFlush.IsZero() {
		return nil
	}

	elapsed := now.Sub(e.session.LastFlush)
	credited := elapsed
	if credited > e.cfg.FlushCap {
		metrics.SecondsDropped.Add((elapsed - e.cfg.FlushCap).Seconds())
		credited = e.cfg.FlushCap
	}
	if credited <= 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}()

	settings, err := e.settings.Get(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get_settings").Inc()
		return fmt.Errorf("load settings: %w", err)
	}

	usage, err := e.usage.Get(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get_usage").Inc()
		return fmt.Errorf("load usage: %w", err)
	}
	if usage == nil {
		usage = storage.UsageMap{}
	}

	domain := e.session.ActiveDomain
	u, ok := usage[domain]
	if !ok {
		// Lazy creation on first accumulation.
		u = storage.DomainUsage{WindowStart: now}
	}

	if window.ForSettings(settings).ResetIfExpired(&u, now) {
		metrics.WindowResets.Inc()
		e.logger.Debug().
			Str("domain", domain).
			Msg("Usage window reset")
	}

	u.ActiveSeconds += credited.Seconds()
	u.LastUpdated = now
	usage[domain] = u

	if err := e.usage.Set(ctx, usage); err != nil {
		metrics.StoreErrors.WithLabelValues("set_usage").Inc()
		return fmt.Errorf("save usage: %w", err)
	}

	metrics.SecondsCredited.WithLabelValues(trigger).Add(credited.Seconds())

	e.logger.Debug().
		Str("domain", domain).
		Float64("credited_seconds", credited.Seconds()).
		Float64("total_seconds", u.ActiveSeconds).
		Str("trigger", trigger).
		Msg("Usage flushed")
	return nil
}

// persistLocked writes the tracker session. Synchronous on every
// transition: the host may tear the process down between any two events,
// and a batched session write would lose the transition. Callers hold e.mu.
func (e *Engine) persistLocked(ctx context.Context) {
	if err := e.sessions.Set(ctx, e.session); err != nil {
		metrics.StoreErrors.WithLabelValues("set_session").Inc()
		e.logger.Warn().Err(err).Msg("Failed to persist tracker session")
	}
}

// expireLockedIn flips an elapsed locked-in session inactive. This is
// the only settings mutation the tracking path performs. Callers hold e.mu.
func (e *Engine) expireLockedIn(ctx context.Context, now time.Time) {
	settings, err := e.settings.Get(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get_settings").Inc()
		e.logger.Warn().Err(err).Msg("Cannot check locked-in expiry, settings unavailable")
		return
	}

	li := settings.LockedIn
	if li == nil || !li.Active || now.Before(li.EndsAt) {
		return
	}

	li.Active = false
	if err := e.settings.Set(ctx, settings); err != nil {
		metrics.StoreErrors.WithLabelValues("set_settings").Inc()
		e.logger.Warn().Err(err).Msg("Failed to deactivate expired locked-in session")
		return
	}

	metrics.LockedInExpirations.Inc()
	e.logger.Info().
		Time("ended_at", li.EndsAt).
		Str("source_group", li.SourceGroupID).
		Msg("Locked-in session expired")
}
