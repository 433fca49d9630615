package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/goodtune/sitewarden/internal/storage"
)

type sessionStore struct {
	db *bbolt.DB
}

// Get returns the persisted tracker session, or a zero session when the
// store was wiped: the engine then re-derives focus from the host.
func (s *sessionStore) Get(ctx context.Context) (storage.TrackerSession, error) {
	var session storage.TrackerSession
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data := tx.Bucket([]byte(bucketSession)).Get([]byte(keySession))
		if data == nil {
			return nil
		}
		if err := unmarshal(data, &session); err != nil {
			session = storage.TrackerSession{}
		}
		return nil
	})
	if err != nil {
		return storage.TrackerSession{}, err
	}
	return session, nil
}

func (s *sessionStore) Set(ctx context.Context, session storage.TrackerSession) error {
	data, err := marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return tx.Bucket([]byte(bucketSession)).Put([]byte(keySession), data)
	})
}

func (s *sessionStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return tx.Bucket([]byte(bucketSession)).Delete([]byte(keySession))
	})
}
