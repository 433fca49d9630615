package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface. Settings and usage are
// shared between the query path and the tracking path; the tracker
// session lives in its own keyspace so tracking writes never race with
// settings writes.
type Store interface {
	Close() error
	Settings() SettingsStore
	Usage() UsageStore
	Session() SessionStore
}

// SettingsStore persists the Settings aggregate. Get returns zero-value
// settings (not ErrNotFound) when nothing has been saved yet, so callers
// can always operate on defaults. Set bumps Settings.Revision.
type SettingsStore interface {
	Get(ctx context.Context) (Settings, error)
	Set(ctx context.Context, settings Settings) error
}

// UsageStore persists the usage map, atomic at whole-map granularity.
type UsageStore interface {
	Get(ctx context.Context) (UsageMap, error)
	Set(ctx context.Context, usage UsageMap) error
	// Reset drops every domain record. This is the only path that
	// deletes usage entries.
	Reset(ctx context.Context) (int, error)
}

// SessionStore persists the tracker session. Get returns a zero session
// when none has been saved (cold start); the engine then stays idle
// until the host reports fresh focus.
type SessionStore interface {
	Get(ctx context.Context) (TrackerSession, error)
	Set(ctx context.Context, session TrackerSession) error
	Clear(ctx context.Context) error
}
