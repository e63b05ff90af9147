package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goGate/kv"
	"github.com/MrEthical07/goGate/kv/kvtest"
)

func TestMemoryStoreConformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		s := New()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStoreClosed(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "k"); !errors.Is(err, kv.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
	if err := s.Apply(context.Background(), kv.Set("k", "v")); !errors.Is(err, kv.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}

func TestMemoryStoreKeysSorted(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Apply(ctx, kv.Set("b", "2"), kv.Set("a", "1")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
