package policy

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/goodtune/sitewarden/internal/hostname"
	"github.com/goodtune/sitewarden/internal/storage"
)

// DefaultCacheSize bounds the resolver's per-hostname policy cache.
const DefaultCacheSize = 1024

// Resolver maps a hostname to the rule that governs it. Resolution walks
// the policy tiers in strict precedence order; the first enabled match
// wins and disabled entries fall through to the next tier. Results are
// cached per normalized hostname, tagged with the settings revision, so
// repeated queries against unchanged settings avoid the linear rule scan.
type Resolver struct {
	cache  *lru.Cache[string, cachedPolicy]
	logger zerolog.Logger
}

type cachedPolicy struct {
	revision int64
	policy   *EffectivePolicy
}

// NewResolver creates a resolver. A cacheSize <= 0 disables caching.
func NewResolver(cacheSize int, logger zerolog.Logger) *Resolver {
	r := &Resolver{
		logger: logger.With().Str("component", "resolver").Logger(),
	}
	if cacheSize > 0 {
		// lru.New only fails on a non-positive size.
		cache, err := lru.New[string, cachedPolicy](cacheSize)
		if err == nil {
			r.cache = cache
		}
	}
	return r
}

// Resolve returns the effective policy for a hostname, or nil when no
// tier matches (unrestricted).
func (r *Resolver) Resolve(host string, settings storage.Settings) *EffectivePolicy {
	h := hostname.Normalize(host)

	// Revision 0 means the settings never passed through the store
	// (tests, defaults); those are not safe to cache.
	if r.cache != nil && settings.Revision != 0 {
		if c, ok := r.cache.Get(h); ok && c.revision == settings.Revision {
			return c.policy
		}
	}

	p := resolve(h, settings)

	if r.cache != nil && settings.Revision != 0 {
		r.cache.Add(h, cachedPolicy{revision: settings.Revision, policy: p})
	}
	return p
}

// resolve walks the four policy tiers for a normalized hostname.
func resolve(host string, settings storage.Settings) *EffectivePolicy {
	// Tier 1: site rules. First-listed wins among duplicates.
	for _, rule := range settings.SiteRules {
		if !hostname.Covers(host, rule.Domain) {
			continue
		}
		if !rule.Enabled {
			continue
		}
		return &EffectivePolicy{
			Mode:             rule.Mode,
			Limit:            limitFor(rule.Mode, rule.LimitMinutes),
			Reason:           ReasonSiteRule,
			ConfiguredDomain: hostname.Normalize(rule.Domain),
		}
	}

	// Tier 2: groups.
	for _, group := range settings.Groups {
		if !group.Enabled {
			continue
		}
		if !hostname.MatchesAny(host, group.Domains) {
			continue
		}
		return &EffectivePolicy{
			Mode:         group.Mode,
			Limit:        limitFor(group.Mode, group.LimitMinutes),
			Reason:       ReasonGroup,
			GroupID:      group.ID,
			GroupDomains: group.Domains,
		}
	}

	// Tier 3: global block list forces a block.
	if hostname.MatchesAny(host, settings.GlobalBlockList) {
		return &EffectivePolicy{
			Mode:   storage.ModeBlock,
			Reason: ReasonGlobalBlock,
		}
	}

	// Tier 4: global defaults, matched against the exact hostname only.
	if gd := settings.GlobalDefaults; gd != nil {
		return &EffectivePolicy{
			Mode:             gd.Mode,
			Limit:            limitFor(gd.Mode, gd.LimitMinutes),
			Reason:           ReasonGlobalDefault,
			ConfiguredDomain: host,
		}
	}

	return nil
}

// limitFor converts configured limit minutes to a duration. A limit-mode
// entry without a limit resolves to zero (immediately exhausted) rather
// than an error; callers should prevent that case upstream.
func limitFor(mode storage.Mode, minutes int) time.Duration {
	if mode != storage.ModeLimit || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}
