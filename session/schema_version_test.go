package session

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goGate/kv"
)

func TestDecodeImpersonationRejectsUnsupportedVersion(t *testing.T) {
	_, err := DecodeImpersonation(`{"v":99,"active":true,"originalUser":{"id":"1","role":"superadmin"},"impersonatedEntityId":"2"}`)
	if !errors.Is(err, errCorrupt) {
		t.Fatalf("expected corrupt error, got %v", err)
	}
}

func TestDecodeImpersonationAcceptsUnversionedBlob(t *testing.T) {
	c, err := DecodeImpersonation(`{"active":true,"originalUser":{"id":"1","role":"superadmin"},"impersonatedEntityId":"2"}`)
	if err != nil {
		t.Fatalf("decode legacy blob: %v", err)
	}
	if c.OriginalUser == nil || c.OriginalUser.ID != "1" || c.ImpersonatedEntityID != "2" {
		t.Fatalf("unexpected decoded context: %+v", c)
	}
}

func TestEncodeImpersonationWritesCurrentVersion(t *testing.T) {
	raw, err := EncodeImpersonation(ImpersonationContext{
		Active:               true,
		OriginalUser:         &User{ID: "1", Role: "superadmin"},
		ImpersonatedEntityID: "2",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	c, err := DecodeImpersonation(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.Active {
		t.Fatal("expected active context after round trip")
	}
}

func TestReadImpersonationHealsUnsupportedVersion(t *testing.T) {
	store, backend, heals := newSessionStoreTest(t)
	ctx := context.Background()

	if err := backend.Apply(ctx, kv.Set("gg:impersonation", `{"v":2,"active":true}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c, err := store.ReadImpersonationContext(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil context, got %+v", c)
	}
	if _, ok, _ := backend.Get(ctx, "gg:impersonation"); ok {
		t.Fatal("expected corrupt impersonation blob to be deleted")
	}
	if len(*heals) != 1 || (*heals)[0].Kind != HealImpersonation {
		t.Fatalf("expected one impersonation heal, got %+v", *heals)
	}
}
