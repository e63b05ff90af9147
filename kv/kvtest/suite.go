// Package kvtest holds the behavioral suite every kv.Store backend must pass.
package kvtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goGate/kv"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. Cleanup is registered by the factory via t.Cleanup.
type Factory func(t *testing.T) kv.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		v, ok, err := s.Get(context.Background(), "missing")
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("ApplySetThenDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Apply(ctx, kv.Set("a", "1"), kv.Set("b", "2")))
		v, ok, err := s.Get(ctx, "a")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "1", v)

		require.NoError(t, s.Apply(ctx, kv.Delete("a"), kv.Delete("never-set")))
		_, ok, err = s.Get(ctx, "a")
		require.NoError(t, err)
		require.False(t, ok)

		v, ok, err = s.Get(ctx, "b")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "2", v)
	})

	t.Run("ApplyOrderWithinBatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Apply(ctx, kv.Set("k", "old"), kv.Delete("k"), kv.Set("k", "new")))
		v, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "new", v)
	})

	t.Run("ApplyRejectsEmptyKey", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.Error(t, s.Apply(ctx, kv.Set("ok", "1"), kv.Set("", "x")))
		_, ok, err := s.Get(ctx, "ok")
		require.NoError(t, err)
		require.False(t, ok, "rejected batch must not be partially applied")
	})

	t.Run("TakeConsumesOnce", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Apply(ctx, kv.Set("marker", "pending")))
		v, ok, err := s.Take(ctx, "marker")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "pending", v)

		_, ok, err = s.Take(ctx, "marker")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("ConcurrentTakeSingleWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Apply(ctx, kv.Set("marker", "pending")))

		const n = 16
		var wins atomic.Int32
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				_, ok, err := s.Take(ctx, "marker")
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("RequireAbsentGuardsBatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Apply(ctx, kv.RequireAbsent("lock"), kv.Set("lock", "a"), kv.Set("user", "a")))

		err := s.Apply(ctx, kv.RequireAbsent("lock"), kv.Set("lock", "b"), kv.Set("user", "b"))
		require.ErrorIs(t, err, kv.ErrConflict)
		require.NotErrorIs(t, err, kv.ErrUnavailable)

		v, ok, err := s.Get(ctx, "user")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "a", v, "conflicting batch must not be applied")

		require.NoError(t, s.Apply(ctx, kv.Delete("lock")))
		require.NoError(t, s.Apply(ctx, kv.RequireAbsent("lock"), kv.Set("lock", "c")))
	})

	t.Run("ConcurrentGuardedSingleWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 16
		var wins, conflicts atomic.Int32
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				err := s.Apply(ctx, kv.RequireAbsent("lock"), kv.Set("lock", fmt.Sprint(i)))
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, kv.ErrConflict):
					conflicts.Add(1)
				}
			}(i)
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
		require.Equal(t, int32(n-1), conflicts.Load())
	})
}
