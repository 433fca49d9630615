package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/goodtune/sitewarden/internal/config"
	"github.com/goodtune/sitewarden/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays zero.
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestSettingsStore_RevisionMonotonic(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	initial, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("get initial settings: %v", err)
	}
	if initial.Revision != 0 {
		t.Fatalf("expected zero settings, got revision %d", initial.Revision)
	}

	settings := storage.Settings{
		Groups: []storage.SiteGroup{
			{ID: "social", Domains: []string{"facebook.com", "instagram.com"}, Mode: storage.ModeLimit, LimitMinutes: 30, Enabled: true},
		},
	}

	for want := int64(1); want <= 3; want++ {
		if err := store.Settings().Set(ctx, settings); err != nil {
			t.Fatalf("set settings: %v", err)
		}
		got, err := store.Settings().Get(ctx)
		if err != nil {
			t.Fatalf("get settings: %v", err)
		}
		if got.Revision != want {
			t.Fatalf("revision = %d, want %d", got.Revision, want)
		}
	}

	got, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if len(got.Groups) != 1 || got.Groups[0].ID != "social" {
		t.Errorf("groups = %+v", got.Groups)
	}
}

func TestUsageStore_RoundTripAndReset(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	usage := storage.UsageMap{
		"youtube.com":   {ActiveSeconds: 120, LastUpdated: now, WindowStart: now},
		"m.youtube.com": {ActiveSeconds: 30, LastUpdated: now, WindowStart: now},
	}
	if err := store.Usage().Set(ctx, usage); err != nil {
		t.Fatalf("set usage: %v", err)
	}

	got, err := store.Usage().Get(ctx)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got["youtube.com"].ActiveSeconds != 120 {
		t.Errorf("youtube.com = %+v", got["youtube.com"])
	}
	if !got["m.youtube.com"].WindowStart.Equal(now) {
		t.Errorf("window start lost: %+v", got["m.youtube.com"])
	}

	// Replacing with a smaller map drops missing keys.
	if err := store.Usage().Set(ctx, storage.UsageMap{
		"youtube.com": {ActiveSeconds: 180, LastUpdated: now, WindowStart: now},
	}); err != nil {
		t.Fatalf("set usage: %v", err)
	}
	got, err = store.Usage().Get(ctx)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if _, ok := got["m.youtube.com"]; ok {
		t.Error("stale key survived a full replace")
	}

	deleted, err := store.Usage().Reset(ctx)
	if err != nil {
		t.Fatalf("reset usage: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestSessionStore_RoundTripAndClear(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	initial, err := store.Session().Get(ctx)
	if err != nil {
		t.Fatalf("get initial session: %v", err)
	}
	if initial.ActiveDomain != "" || !initial.LastFlush.IsZero() {
		t.Fatalf("expected zero session, got %+v", initial)
	}

	session := storage.TrackerSession{
		ActiveDomain: "reddit.com",
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

	// Idle sessions persist with a zero flush timestamp.
	if err := store.Session().Set(ctx, storage.TrackerSession{}); err != nil {
		t.Fatalf("set idle session: %v", err)
	}
	got, err = store.Session().Get(ctx)
	if err != nil {
		t.Fatalf("get idle session: %v", err)
	}
	if got.ActiveDomain != "" || !got.LastFlush.IsZero() {
		t.Errorf("idle session = %+v", got)
	}

	if err := store.Session().Clear(ctx); err != nil {
		t.Fatalf("clear session: %v", err)
	}
}
