package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/sitewarden/internal/storage"
)

type sessionStore struct {
	client *redis.Client
}

// Get retrieves the tracker session hash. A missing session is a zero
// session, not an error.
func (s *sessionStore) Get(ctx context.Context) (storage.TrackerSession, error) {
	data, err := s.client.HGetAll(ctx, keySession).Result()
	if err != nil {
		return storage.TrackerSession{}, fmt.Errorf("get session: %w", err)
	}
	if len(data) == 0 {
		return storage.TrackerSession{}, nil
	}
	return parseTrackerSession(data)
}

func (s *sessionStore) Set(ctx context.Context, session storage.TrackerSession) error {
	lastFlush := ""
	if !session.LastFlush.IsZero() {
		lastFlush = session.LastFlush.Format(time.RFC3339Nano)
	}

	fields := map[string]interface{}{
		"active_domain": session.ActiveDomain,
		"last_flush":    lastFlush,
	}
	if err := s.client.HSet(ctx, keySession, fields).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *sessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, keySession).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// parseTrackerSession converts a Redis hash to TrackerSession
func parseTrackerSession(data map[string]string) (storage.TrackerSession, error) {
	session := storage.TrackerSession{
		ActiveDomain: data["active_domain"],
	}

	if raw := data["last_flush"]; raw != "" {
		lastFlush, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return storage.TrackerSession{}, fmt.Errorf("failed to parse last_flush: %w", err)
		}
		session.LastFlush = lastFlush
	}

	return session, nil
}
