package kv

import (
	"context"
	"errors"
)

// ErrUnavailable wraps backend failures (connection loss, closed database).
var ErrUnavailable = errors.New("kv backend unavailable")

// ErrConflict is returned by [Store.Apply] when an [OpRequireAbsent] key
// exists. Nothing in the batch is applied.
var ErrConflict = errors.New("kv batch precondition failed")

// OpKind selects the mutation performed by an [Op].
type OpKind uint8

const (
	// OpSet writes Value under Key.
	OpSet OpKind = iota + 1
	// OpDelete removes Key. Deleting a missing key is not an error.
	OpDelete
	// OpRequireAbsent fails the whole batch with [ErrConflict] if Key exists.
	// The check and the writes are one atomic step.
	OpRequireAbsent
)

// Op is one mutation inside an atomic [Store.Apply] batch.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
}

// Set returns an [OpSet] operation.
func Set(key, value string) Op {
	return Op{Kind: OpSet, Key: key, Value: value}
}

// Delete returns an [OpDelete] operation.
func Delete(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// RequireAbsent returns an [OpRequireAbsent] guard.
func RequireAbsent(key string) Op {
	return Op{Kind: OpRequireAbsent, Key: key}
}

// Guarded reports whether ops carries an [OpRequireAbsent] guard.
func Guarded(ops []Op) bool {
	for _, op := range ops {
		if op.Kind == OpRequireAbsent {
			return true
		}
	}
	return false
}

// Store is the persisted key-value contract.
//
// Get reports (value, true, nil) for a present key and ("", false, nil) for a missing one.
// Every method is safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Apply(ctx context.Context, ops ...Op) error
	Take(ctx context.Context, key string) (string, bool, error)
	Close() error
}

// Validate rejects malformed batches before they reach a backend.
func Validate(ops []Op) error {
	for _, op := range ops {
		if op.Key == "" {
			return errors.New("kv: empty key")
		}
		if op.Kind != OpSet && op.Kind != OpDelete && op.Kind != OpRequireAbsent {
			return errors.New("kv: unknown op kind")
		}
	}
	return nil
}
