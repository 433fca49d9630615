package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/sitewarden/internal/storage"
)

type settingsStore struct {
	client *redis.Client
}

// Get retrieves the settings blob, or zero settings when none exist.
func (s *settingsStore) Get(ctx context.Context) (storage.Settings, error) {
	data, err := s.client.Get(ctx, keySettings).Result()
	if err == redis.Nil {
		return storage.Settings{}, nil
	}
	if err != nil {
		return storage.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	var settings storage.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		// A corrupt blob degrades to defaults rather than failing
		// every query against it.
		return storage.Settings{}, nil
	}
	return settings, nil
}

// Set persists the settings blob with a freshly incremented revision.
// The INCR counter survives the blob itself, so revisions stay monotonic
// across overwrites.
func (s *settingsStore) Set(ctx context.Context, settings storage.Settings) error {
	revision, err := s.client.Incr(ctx, keySettingsRevision).Result()
	if err != nil {
		return fmt.Errorf("bump settings revision: %w", err)
	}
	settings.Revision = revision

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := s.client.Set(ctx, keySettings, data, 0).Err(); err != nil {
		return fmt.Errorf("set settings: %w", err)
	}
	return nil
}
