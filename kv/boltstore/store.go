// Package boltstore implements kv.Store on a local bbolt file. It backs the
// gatectl CLI, where session state must survive between process invocations.
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGate/kv"
	"go.etcd.io/bbolt"
)

var defaultBucket = []byte("session")

// Store is a kv.Store backed by one bbolt bucket.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

var _ kv.Store = (*Store)(nil)

// New returns a Store using an already-open database. The bucket is created
// on first write.
func New(db *bbolt.DB, bucket string) *Store {
	b := defaultBucket
	if bucket != "" {
		b = []byte(bucket)
	}
	return &Store{db: db, bucket: b}
}

// Open opens (or creates) a bbolt file at path.
func Open(path, bucket string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening bbolt db: %v", kv.ErrUnavailable, err)
	}
	return New(db, bucket), nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		if data := b.Get([]byte(key)); data != nil {
			// bbolt memory is only valid for the life of the transaction.
			value = string(data)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return value, found, nil
}

func (s *Store) Apply(ctx context.Context, ops ...kv.Op) error {
	if err := kv.Validate(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		for _, op := range ops {
			if op.Kind == kv.OpRequireAbsent && b.Get([]byte(op.Key)) != nil {
				return kv.ErrConflict
			}
		}
		for _, op := range ops {
			switch op.Kind {
			case kv.OpSet:
				err = b.Put([]byte(op.Key), []byte(op.Value))
			case kv.OpDelete:
				err = b.Delete([]byte(op.Key))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, kv.ErrConflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Take(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		value = string(data)
		found = true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return value, found, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
