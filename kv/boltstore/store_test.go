package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/goGate/kv"
	"github.com/MrEthical07/goGate/kv/kvtest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStoreConformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		return openTestStore(t, filepath.Join(t.TempDir(), "kv.db"))
	})
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	s, err := Open(path, "gatectl")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Apply(ctx, kv.Set("token", "t1"), kv.Set("user", `{"id":"u1"}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path, "gatectl")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "token")
	if err != nil || !ok || v != "t1" {
		t.Fatalf("expected persisted token t1, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestBoltStoreCancelledContext(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "kv.db"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Apply(ctx, kv.Set("k", "v")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	v, ok, err := s.Get(context.Background(), "k")
	if err != nil || ok {
		t.Fatalf("cancelled apply must not write, got %q ok=%v err=%v", v, ok, err)
	}
}
