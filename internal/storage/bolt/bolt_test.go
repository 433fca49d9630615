package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/sitewarden/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSettingsRoundTripAndRevision(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Unsaved settings read as the zero value.
	initial, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("get initial settings: %v", err)
	}
	if initial.Revision != 0 || len(initial.SiteRules) != 0 {
		t.Fatalf("expected zero settings, got %+v", initial)
	}

	settings := storage.Settings{
		SiteRules: []storage.SiteRule{
			{Domain: "youtube.com", Mode: storage.ModeLimit, LimitMinutes: 30, Enabled: true},
		},
		GlobalBlockList: []string{"gambling.example"},
	}
	if err := store.Settings().Set(ctx, settings); err != nil {
		t.Fatalf("set settings: %v", err)
	}

	got, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.Revision != 1 {
		t.Errorf("revision = %d, want 1", got.Revision)
	}
	if len(got.SiteRules) != 1 || got.SiteRules[0].Domain != "youtube.com" {
		t.Errorf("site rules = %+v", got.SiteRules)
	}

	// Every save bumps the revision, regardless of what the caller
	// passed in.
	got.Revision = 999
	if err := store.Settings().Set(ctx, got); err != nil {
		t.Fatalf("set settings again: %v", err)
	}
	again, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("get settings again: %v", err)
	}
	if again.Revision != 2 {
		t.Errorf("revision = %d, want 2", again.Revision)
	}
}

func TestUsageReplaceAndReset(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	usage := storage.UsageMap{
		"youtube.com": {ActiveSeconds: 120, LastUpdated: now, WindowStart: now},
		"reddit.com":  {ActiveSeconds: 45, LastUpdated: now, WindowStart: now},
	}
	if err := store.Usage().Set(ctx, usage); err != nil {
		t.Fatalf("set usage: %v", err)
	}

	got, err := store.Usage().Get(ctx)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 usage entries, got %d", len(got))
	}
	if got["youtube.com"].ActiveSeconds != 120 {
		t.Errorf("youtube.com = %+v", got["youtube.com"])
	}
	if !got["reddit.com"].WindowStart.Equal(now) {
		t.Errorf("window start lost: %+v", got["reddit.com"])
	}

	// Set replaces the whole map: a dropped key stays dropped.
	delete(usage, "reddit.com")
	if err := store.Usage().Set(ctx, usage); err != nil {
		t.Fatalf("set usage: %v", err)
	}
	got, err = store.Usage().Get(ctx)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if _, ok := got["reddit.com"]; ok {
		t.Error("deleted key survived a full replace")
	}

	deleted, err := store.Usage().Reset(ctx)
	if err != nil {
		t.Fatalf("reset usage: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	got, err = store.Usage().Get(ctx)
	if err != nil {
		t.Fatalf("get usage after reset: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty usage after reset, got %v", got)
	}
}

func TestSessionRoundTripAndClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Missing session reads as the zero value.
	initial, err := store.Session().Get(ctx)
	if err != nil {
		t.Fatalf("get initial session: %v", err)
	}
	if initial.ActiveDomain != "" || !initial.LastFlush.IsZero() {
		t.Fatalf("expected zero session, got %+v", initial)
	}

	session := storage.TrackerSession{
		ActiveDomain: "youtube.com",
		LastFlush:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	if err := store.Session().Set(ctx, session); err != nil {
		t.Fatalf("set session: %v", err)
	}

	got, err := store.Session().Get(ctx)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.ActiveDomain != session.ActiveDomain || !got.LastFlush.Equal(session.LastFlush) {
		t.Errorf("session = %+v, want %+v", got, session)
	}

	if err := store.Session().Clear(ctx); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	got, err = store.Session().Get(ctx)
	if err != nil {
		t.Fatalf("get session after clear: %v", err)
	}
	if got.ActiveDomain != "" {
		t.Errorf("session survived clear: %+v", got)
	}
}
