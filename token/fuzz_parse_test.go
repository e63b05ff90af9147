package token

import (
	"testing"
	"time"
)

// FuzzInspect exercises the inspector with arbitrary token strings.
// Goal: no panics; expiry is only reported for parseable tokens.
func FuzzInspect(f *testing.F) {
	signer, err := NewSigner(SignerConfig{SigningMethod: MethodHS256, PrivateKey: []byte("fuzz-secret"), TTL: time.Minute})
	if err != nil {
		f.Fatal(err)
	}
	valid, err := signer.Sign("uid1", "employee")
	if err != nil {
		f.Fatal(err)
	}
	insp, err := NewInspector(Config{Leeway: 30 * time.Second})
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")
	f.Add("opaque")

	f.Fuzz(func(t *testing.T, input string) {
		c, err := insp.Inspect(input)
		if err != nil && c.Expired {
			t.Fatal("Inspect reported expiry alongside an error")
		}
	})
}
