// Package redisstore implements kv.Store on Redis.
//
// Batches run inside MULTI/EXEC so readers never observe a partially applied
// batch; Take uses a Lua script so get-and-delete is a single server-side step
// on every Redis version the engine supports. Batches carrying an
// OpRequireAbsent guard run as one Lua script that checks before writing.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/kv"
	"github.com/redis/go-redis/v9"
)

const takeScript = `
local value = redis.call("GET", KEYS[1])
if value then
  redis.call("DEL", KEYS[1])
end
return value
`

var takeLua = redis.NewScript(takeScript)

// ARGV holds a kind and a value per key.
const guardedApplyScript = `
for i, key in ipairs(KEYS) do
  if ARGV[2*i-1] == "absent" and redis.call("EXISTS", key) == 1 then
    return 0
  end
end
for i, key in ipairs(KEYS) do
  local kind = ARGV[2*i-1]
  if kind == "set" then
    redis.call("SET", key, ARGV[2*i])
  elseif kind == "del" then
    redis.call("DEL", key)
  end
end
return 1
`

var guardedApplyLua = redis.NewScript(guardedApplyScript)

// Store is a Redis-backed kv.Store. Keys are stored verbatim under an optional
// namespace prefix so several control planes can share one database.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	owned  bool
}

var _ kv.Store = (*Store)(nil)

// New wraps an existing client. prefix, when non-empty, is prepended as "prefix:".
// Close does not close a client passed in through New.
func New(client redis.UniversalClient, prefix string) *Store {
	return &Store{redis: client, prefix: prefix}
}

// Dial creates a client for addr and owns it; Close releases the connection pool.
func Dial(addr, prefix string) *Store {
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	return &Store{redis: client, prefix: prefix, owned: true}
}

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *Store) Apply(ctx context.Context, ops ...kv.Op) error {
	if err := kv.Validate(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	if kv.Guarded(ops) {
		return s.applyGuarded(ctx, ops)
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			switch op.Kind {
			case kv.OpSet:
				pipe.Set(ctx, s.key(op.Key), op.Value, 0)
			case kv.OpDelete:
				pipe.Del(ctx, s.key(op.Key))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) applyGuarded(ctx context.Context, ops []kv.Op) error {
	keys := make([]string, 0, len(ops))
	args := make([]any, 0, 2*len(ops))
	for _, op := range ops {
		keys = append(keys, s.key(op.Key))
		switch op.Kind {
		case kv.OpSet:
			args = append(args, "set", op.Value)
		case kv.OpDelete:
			args = append(args, "del", "")
		case kv.OpRequireAbsent:
			args = append(args, "absent", "")
		}
	}

	applied, err := guardedApplyLua.Run(ctx, s.redis, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	if applied == 0 {
		return kv.ErrConflict
	}
	return nil
}

func (s *Store) Take(ctx context.Context, key string) (string, bool, error) {
	result, err := takeLua.Run(ctx, s.redis, []string{s.key(key)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}

	switch v := result.(type) {
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	default:
		return "", false, fmt.Errorf("%w: unexpected take script reply %T", kv.ErrUnavailable, result)
	}
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.redis.Close()
}
