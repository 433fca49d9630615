package policy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goodtune/sitewarden/internal/metrics"
	"github.com/goodtune/sitewarden/internal/storage"
)

// Engine answers blocked-state queries against the shared store. It is
// the read side of the system: it never mutates settings or usage, and a
// query that cannot be completed degrades to "unrestricted" instead of
// surfacing an error to the caller.
type Engine struct {
	store    storage.Store
	resolver *Resolver
	clock    Clock
	logger   zerolog.Logger
}

// NewEngine creates a query engine backed by the given store.
func NewEngine(store storage.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		resolver: NewResolver(DefaultCacheSize, logger),
		clock:    RealClock{},
		logger:   logger.With().Str("component", "policy").Logger(),
	}
}

// SetClock sets the clock used for evaluation (for testing).
func (e *Engine) SetClock(clock Clock) {
	e.clock = clock
}

// Resolver exposes the underlying resolver for offline checks.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Query reports whether a hostname is currently restricted. Two
// consecutive calls with no intervening focus change or tick return
// identical results.
func (e *Engine) Query(ctx context.Context, host string) BlockedState {
	settings, err := e.store.Settings().Get(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get_settings").Inc()
		e.logger.Warn().Err(err).Str("host", host).Msg("Settings unavailable, treating as unrestricted")
		return BlockedState{}
	}

	usage, err := e.store.Usage().Get(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get_usage").Inc()
		e.logger.Warn().Err(err).Str("host", host).Msg("Usage unavailable, treating as unrestricted")
		usage = storage.UsageMap{}
	}

	state := e.resolver.BlockedState(host, usage, settings, e.clock.Now())

	result := "allowed"
	if state.Blocked {
		result = "blocked"
	}
	metrics.QueriesTotal.WithLabelValues(result, string(state.Reason)).Inc()

	e.logger.Debug().
		Str("host", host).
		Bool("blocked", state.Blocked).
		Str("reason", string(state.Reason)).
		Float64("remaining_seconds", state.RemainingSeconds).
		Msg("Query evaluated")

	return state
}
