package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/goodtune/sitewarden/internal/storage"
)

type settingsStore struct {
	db *bbolt.DB
}

// Get returns the persisted settings, or zero-value settings when none
// have been saved yet. Malformed persisted data also degrades to
// defaults; the core must keep operating on whatever it is handed.
func (s *settingsStore) Get(ctx context.Context) (storage.Settings, error) {
	var settings storage.Settings
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data := tx.Bucket([]byte(bucketSettings)).Get([]byte(keySettings))
		if data == nil {
			return nil
		}
		if err := unmarshal(data, &settings); err != nil {
			settings = storage.Settings{}
		}
		return nil
	})
	if err != nil {
		return storage.Settings{}, err
	}
	return settings, nil
}

// Set persists settings, bumping the revision in the same transaction so
// resolver caches keyed on it are coherent.
func (s *settingsStore) Set(ctx context.Context, settings storage.Settings) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSettings))

		var current storage.Settings
		if data := b.Get([]byte(keySettings)); data != nil {
			_ = unmarshal(data, &current)
		}
		settings.Revision = current.Revision + 1

		data, err := marshal(settings)
		if err != nil {
			return err
		}
		return b.Put([]byte(keySettings), data)
	})
}
