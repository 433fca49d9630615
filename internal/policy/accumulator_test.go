package policy

import (
	"testing"
	"time"

	"github.com/goodtune/sitewarden/internal/storage"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func freshUsage(seconds float64) storage.DomainUsage {
	return storage.DomainUsage{
		ActiveSeconds: seconds,
		LastUpdated:   testNow,
		WindowStart:   testNow.Add(-time.Hour),
	}
}

func TestBlockedStateDisabledGlobally(t *testing.T) {
	settings := storage.Settings{
		Disabled: true,
		SiteRules: []storage.SiteRule{
			{Domain: "youtube.com", Mode: storage.ModeBlock, Enabled: true},
		},
	}

	state := newTestResolver().BlockedState("youtube.com", nil, settings, testNow)
	if state.Blocked {
		t.Error("expected unrestricted when globally disabled")
	}
}

func TestBlockedStateSiteBlock(t *testing.T) {
	settings := storage.Settings{
		SiteRules: []storage.SiteRule{
			{Domain: "youtube.com", Mode: storage.ModeBlock, Enabled: true},
		},
	}

	state := newTestResolver().BlockedState("m.youtube.com", nil, settings, testNow)
	if !state.Blocked {
		t.Fatal("expected blocked")
	}
	if state.Reason != ReasonSiteRule {
		t.Errorf("reason = %v, want %v", state.Reason, ReasonSiteRule)
	}
}

// Limit rule aggregates usage across the apex and its subdomains.
func TestBlockedStateLimitAggregatesSubdomains(t *testing.T) {
	settings := storage.Settings{
		SiteRules: []storage.SiteRule{
			{Domain: "twitter.com", Mode: storage.ModeLimit, LimitMinutes: 10, Enabled: true},
		},
	}
	usage := storage.UsageMap{
		"twitter.com":   freshUsage(300),
		"m.twitter.com": freshUsage(200),
	}

	state := newTestResolver().BlockedState("twitter.com", usage, settings, testNow)
	if state.Blocked {
		t.Fatalf("expected not yet blocked: %+v", state)
	}
	// 600s limit - 500s used
	if state.RemainingSeconds != 100 {
		t.Errorf("remaining = %v, want 100", state.RemainingSeconds)
	}

	// Querying a subdomain sees the same exhausted pool.
	usage["web.twitter.com"] = freshUsage(150)
	state = newTestResolver().BlockedState("www.twitter.com", usage, settings, testNow)
	if !state.Blocked {
		t.Fatalf("expected blocked after pool exhausted: %+v", state)
	}
	if state.RemainingSeconds != 0 {
		t.Errorf("remaining = %v, want 0", state.RemainingSeconds)
	}
	if state.Message != "time limit reached" {
		t.Errorf("message = %q", state.Message)
	}
}

// Group members draw from one shared pool.
func TestBlockedStateGroupSharedPool(t *testing.T) {
	settings := storage.Settings{
		Groups: []storage.SiteGroup{
			{
				ID:           "social",
				Domains:      []string{"facebook.com", "instagram.com"},
				Mode:         storage.ModeLimit,
				LimitMinutes: 10,
				Enabled:      true,
			},
		},
	}
	usage := storage.UsageMap{
		"facebook.com":    freshUsage(400),
		"m.instagram.com": freshUsage(150),
	}

	// Querying either member sees the combined 550s of use.
	for _, host := range []string{"facebook.com", "instagram.com"} {
		state := newTestResolver().BlockedState(host, usage, settings, testNow)
		if state.Blocked {
			t.Fatalf("%s: expected not blocked: %+v", host, state)
		}
		if state.RemainingSeconds != 50 {
			t.Errorf("%s: remaining = %v, want 50", host, state.RemainingSeconds)
		}
	}
}

func TestBlockedStateLimitWithoutMinutesExhausted(t *testing.T) {
	settings := storage.Settings{
		SiteRules: []storage.SiteRule{
			{Domain: "example.com", Mode: storage.ModeLimit, Enabled: true},
		},
	}

	state := newTestResolver().BlockedState("example.com", nil, settings, testNow)
	if !state.Blocked {
		t.Fatal("limit rule without minutes should read as exhausted")
	}
	if state.RemainingSeconds != 0 {
		t.Errorf("remaining = %v, want 0", state.RemainingSeconds)
	}
}

func TestBlockedStateExpiredWindowReadsAsZero(t *testing.T) {
	settings := storage.Settings{
		SiteRules: []storage.SiteRule{
			{Domain: "example.com", Mode: storage.ModeLimit, LimitMinutes: 5, Enabled: true},
		},
		ResetWindow: storage.ResetWindow{IntervalHours: 24},
	}
	usage := storage.UsageMap{
		"example.com": {
			ActiveSeconds: 10000,
			LastUpdated:   testNow.Add(-30 * time.Hour),
			WindowStart:   testNow.Add(-30 * time.Hour),
		},
	}

	state := newTestResolver().BlockedState("example.com", usage, settings, testNow)
	if state.Blocked {
		t.Fatalf("expired window should contribute zero: %+v", state)
	}
	if state.RemainingSeconds != 300 {
		t.Errorf("remaining = %v, want full 300", state.RemainingSeconds)
	}
}

func TestBlockedStateGlobalDefaultExactHostOnly(t *testing.T) {
	settings := storage.Settings{
		GlobalDefaults: &storage.GlobalDefaults{Mode: storage.ModeLimit, LimitMinutes: 10},
	}
	usage := storage.UsageMap{
		"example.org":     freshUsage(500),
		"sub.example.org": freshUsage(400),
	}

	// Defaults do not aggregate subdomains; only the queried host's own
	// record counts.
	state := newTestResolver().BlockedState("example.org", usage, settings, testNow)
	if state.RemainingSeconds != 100 {
		t.Errorf("remaining = %v, want 100", state.RemainingSeconds)
	}
}

func TestBlockedStateLockedInDominates(t *testing.T) {
	settings := storage.Settings{
		SiteRules: []storage.SiteRule{
			// Even an explicit block rule on an allowed domain loses to
			// the session.
			{Domain: "docs.example.com", Mode: storage.ModeBlock, Enabled: true},
		},
		LockedIn: &storage.LockedInSession{
			Active:         true,
			StartsAt:       testNow.Add(-10 * time.Minute),
			EndsAt:         testNow.Add(50 * time.Minute),
			AllowedDomains: []string{"docs.example.com"},
		},
	}

	state := newTestResolver().BlockedState("docs.example.com", nil, settings, testNow)
	if state.Blocked {
		t.Errorf("allow-listed domain blocked during session: %+v", state)
	}

	state = newTestResolver().BlockedState("wikipedia.org", nil, settings, testNow)
	if !state.Blocked {
		t.Fatal("expected non-listed domain blocked during session")
	}
	if state.Reason != ReasonLockedIn {
		t.Errorf("reason = %v, want %v", state.Reason, ReasonLockedIn)
	}
}

func TestBlockedStateLockedInSubdomainAllowed(t *testing.T) {
	settings := storage.Settings{
		LockedIn: &storage.LockedInSession{
			Active:         true,
			EndsAt:         testNow.Add(time.Hour),
			AllowedDomains: []string{"example.com"},
		},
	}

	state := newTestResolver().BlockedState("docs.example.com", nil, settings, testNow)
	if state.Blocked {
		t.Error("subdomain of allow-listed domain should pass")
	}
}

func TestBlockedStatePastDeadlineSessionIgnored(t *testing.T) {
	settings := storage.Settings{
		LockedIn: &storage.LockedInSession{
			Active:         true, // not yet retired by the tick
			EndsAt:         testNow.Add(-time.Minute),
			AllowedDomains: []string{"docs.example.com"},
		},
	}

	state := newTestResolver().BlockedState("wikipedia.org", nil, settings, testNow)
	if state.Blocked {
		t.Error("expired session must not block, even while still flagged active")
	}
}

// Querying is idempotent: with no intervening accumulation, repeated
// queries return identical results.
func TestBlockedStateIdempotent(t *testing.T) {
	settings := storage.Settings{
		Revision: 7,
		SiteRules: []storage.SiteRule{
			{Domain: "twitter.com", Mode: storage.ModeLimit, LimitMinutes: 10, Enabled: true},
		},
	}
	usage := storage.UsageMap{"twitter.com": freshUsage(300)}

	r := newTestResolver()
	first := r.BlockedState("twitter.com", usage, settings, testNow)
	second := r.BlockedState("twitter.com", usage, settings, testNow)
	if first != second {
		t.Errorf("query not idempotent: %+v vs %+v", first, second)
	}
}

func TestBlockedStateNoMatchUnrestricted(t *testing.T) {
	state := newTestResolver().BlockedState("wikipedia.org", nil, storage.Settings{}, testNow)
	if state.Blocked || state.Reason != "" {
		t.Errorf("expected zero state, got %+v", state)
	}
}
