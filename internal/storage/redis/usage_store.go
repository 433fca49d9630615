package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/sitewarden/internal/storage"
)

type usageStore struct {
	client *redis.Client
}

// Get retrieves the full usage map from the usage hash.
func (s *usageStore) Get(ctx context.Context) (storage.UsageMap, error) {
	data, err := s.client.HGetAll(ctx, keyUsage).Result()
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}

	usage := make(storage.UsageMap, len(data))
	for domain, raw := range data {
		var u storage.DomainUsage
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			continue
		}
		usage[domain] = u
	}
	return usage, nil
}

// Set replaces the usage hash atomically via a transaction pipeline.
func (s *usageStore) Set(ctx context.Context, usage storage.UsageMap) error {
	fields := make(map[string]interface{}, len(usage))
	for domain, u := range usage {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal usage for %s: %w", domain, err)
		}
		fields[domain] = data
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyUsage)
	if len(fields) > 0 {
		pipe.HSet(ctx, keyUsage, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set usage: %w", err)
	}
	return nil
}

// Reset deletes all accumulated usage and reports how many domains were
// cleared.
func (s *usageStore) Reset(ctx context.Context) (int, error) {
	count, err := s.client.HLen(ctx, keyUsage).Result()
	if err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	if err := s.client.Del(ctx, keyUsage).Err(); err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}
	return int(count), nil
}
