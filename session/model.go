package session

import "encoding/json"

// User is the identity payload returned by the backend on login.
//
// Fields the control plane does not interpret are kept in Extra and written
// back unchanged, so a round trip through the store never drops backend data.
type User struct {
	ID          string
	Role        string
	DisplayName string
	Email       string
	EntityID    string

	Extra map[string]json.RawMessage
}

// Session is the persisted authentication pair.
type Session struct {
	Token string
	User  User
}

// ImpersonationContext records who started an impersonation and whom they became.
//
// Only active contexts are ever persisted; Active is kept on the wire for
// compatibility with stored blobs.
type ImpersonationContext struct {
	Active               bool
	OriginalUser         *User
	ImpersonatedEntityID string
}

// Valid reports whether the context satisfies active ⇒ originalUser != nil.
func (c ImpersonationContext) Valid() bool {
	if !c.Active {
		return true
	}
	return c.OriginalUser != nil && c.OriginalUser.ID != "" && c.ImpersonatedEntityID != ""
}

// HealKind names which persisted record was repaired.
type HealKind string

const (
	HealSession       HealKind = "session"
	HealImpersonation HealKind = "impersonation"
	HealExitMarker    HealKind = "exit_transition"
)

// HealEvent describes one self-healing repair.
type HealEvent struct {
	Kind   HealKind
	Reason string
}

// HealFunc receives repair notifications. It must not block.
type HealFunc func(HealEvent)
