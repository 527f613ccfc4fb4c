package idemstore

import (
	"context"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

const bucketName = "idempotency"

type BoltStore struct{ db *bolt.DB }

// NewBolt opens (or creates) a file-backed store. Durable across restarts of
// a single host, not shared between instances.
func NewBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error { return s.db.Close() }

func boltKey(routeKey, key string) []byte { return []byte(routeKey + "\x00" + key) }

func (s *BoltStore) Lookup(_ context.Context, routeKey, key string) (*model.IdempotencyRecord, error) {
	var rec *model.IdempotencyRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get(boltKey(routeKey, key))
		if v == nil {
			return nil
		}
		var r model.IdempotencyRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		if time.Now().After(r.ExpiresAt) {
			return nil
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) Save(_ context.Context, rec *model.IdempotencyRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := boltKey(rec.RouteKey, rec.Key)
		if v := b.Get(k); v != nil {
			var old model.IdempotencyRecord
			if err := json.Unmarshal(v, &old); err == nil && time.Now().Before(old.ExpiresAt) {
				// first writer wins
				return nil
			}
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
}
