package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/goodtune/sitewarden/internal/storage"
)

type usageStore struct {
	db *bbolt.DB
}

func (s *usageStore) Get(ctx context.Context) (storage.UsageMap, error) {
	usage := storage.UsageMap{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketUsage))
		return b.ForEach(func(k, v []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var u storage.DomainUsage
			if err := unmarshal(v, &u); err != nil {
				// A corrupt record is dropped rather than
				// poisoning the whole map.
				return nil
			}
			usage[string(k)] = u
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// Set replaces the whole usage map in one transaction.
func (s *usageStore) Set(ctx context.Context, usage storage.UsageMap) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := tx.DeleteBucket([]byte(bucketUsage)); err != nil {
			return err
		}
		b, err := tx.CreateBucket([]byte(bucketUsage))
		if err != nil {
			return err
		}
		for domain, u := range usage {
			data, err := marshal(u)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(domain), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *usageStore) Reset(ctx context.Context) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketUsage))
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
