package session

import "testing"

// FuzzDecodeUser exercises the user decoder with arbitrary inputs.
// Goal: no panics, and every accepted payload re-encodes and decodes again.
func FuzzDecodeUser(f *testing.F) {
	seed, err := EncodeUser(User{ID: "7", Role: "manager", DisplayName: "Ada"})
	if err == nil {
		f.Add(seed)
	}
	f.Add("")
	f.Add("{")
	f.Add("{not json")
	f.Add("null")
	f.Add(`{"id":12,"role":"admin","team":{"name":"core"}}`)
	f.Add(`{"id":true}`)

	f.Fuzz(func(t *testing.T, data string) {
		u, err := DecodeUser(data)
		if err != nil {
			return
		}
		out, err := EncodeUser(u)
		if err != nil {
			t.Fatalf("re-encode accepted user: %v", err)
		}
		if _, err := DecodeUser(out); err != nil {
			t.Fatalf("decode re-encoded user %q: %v", out, err)
		}
	})
}

func FuzzDecodeImpersonation(f *testing.F) {
	seed, err := EncodeImpersonation(ImpersonationContext{
		Active:               true,
		OriginalUser:         &User{ID: "1", Role: "superadmin"},
		ImpersonatedEntityID: "42",
	})
	if err == nil {
		f.Add(seed)
	}
	f.Add(`{"active":true}`)
	f.Add(`{"v":9,"active":false}`)

	f.Fuzz(func(t *testing.T, data string) {
		c, err := DecodeImpersonation(data)
		if err != nil {
			return
		}
		if !c.Valid() {
			t.Fatalf("decoder accepted invalid context %+v", c)
		}
	})
}
