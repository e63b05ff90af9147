package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// impersonationFormatVersionCurrent is written on every impersonation blob.
// Blobs without a version field predate versioning and decode as version 1.
const (
	impersonationFormatVersionCurrent = 1
	impersonationFormatVersionV1      = 1
)

// ExitMarkerPendingRestore is the only valid persisted exit-transition value.
const ExitMarkerPendingRestore = "pending_restore"

var errCorrupt = errors.New("session: corrupt record")

var knownUserFields = map[string]struct{}{
	"id":          {},
	"role":        {},
	"displayName": {},
	"email":       {},
	"entityId":    {},
}

// MarshalJSON writes the known fields followed by any preserved extras.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(u.Extra)+5)
	for k, v := range u.Extra {
		if _, known := knownUserFields[k]; known {
			continue
		}
		out[k] = v
	}
	put := func(name, value string, always bool) error {
		if value == "" && !always {
			return nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[name] = raw
		return nil
	}
	if err := put("id", u.ID, true); err != nil {
		return nil, err
	}
	if err := put("role", u.Role, true); err != nil {
		return nil, err
	}
	if err := put("displayName", u.DisplayName, false); err != nil {
		return nil, err
	}
	if err := put("email", u.Email, false); err != nil {
		return nil, err
	}
	if err := put("entityId", u.EntityID, false); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object. Numeric ids are normalized to their
// decimal text; other non-string known fields are corrupt.
func (u *User) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: user is not an object", errCorrupt)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fmt.Errorf("%w: %v", errCorrupt, err)
	}

	var decoded User
	for k, raw := range fields {
		var target *string
		switch k {
		case "id":
			target = &decoded.ID
		case "role":
			target = &decoded.Role
		case "displayName":
			target = &decoded.DisplayName
		case "email":
			target = &decoded.Email
		case "entityId":
			target = &decoded.EntityID
		default:
			if decoded.Extra == nil {
				decoded.Extra = make(map[string]json.RawMessage)
			}
			decoded.Extra[k] = append(json.RawMessage(nil), raw...)
			continue
		}
		if err := decodeText(raw, target); err != nil {
			return fmt.Errorf("%w: field %q: %v", errCorrupt, k, err)
		}
	}

	*u = decoded
	return nil
}

func decodeText(raw json.RawMessage, target *string) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*target = ""
		return nil
	}
	if err := json.Unmarshal(raw, target); err == nil {
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return errors.New("expected string or number")
	}
	*target = n.String()
	return nil
}

// EncodeUser returns the persisted form of u.
func EncodeUser(u User) (string, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeUser parses a persisted user payload.
func DecodeUser(data string) (User, error) {
	var u User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		if errors.Is(err, errCorrupt) {
			return User{}, err
		}
		return User{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return u, nil
}

type impersonationWire struct {
	Version              int    `json:"v,omitempty"`
	Active               bool   `json:"active"`
	OriginalUser         *User  `json:"originalUser"`
	ImpersonatedEntityID string `json:"impersonatedEntityId"`
}

// EncodeImpersonation returns the persisted form of c.
func EncodeImpersonation(c ImpersonationContext) (string, error) {
	raw, err := json.Marshal(impersonationWire{
		Version:              impersonationFormatVersionCurrent,
		Active:               c.Active,
		OriginalUser:         c.OriginalUser,
		ImpersonatedEntityID: c.ImpersonatedEntityID,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeImpersonation parses and validates a persisted impersonation context.
func DecodeImpersonation(data string) (ImpersonationContext, error) {
	var w impersonationWire
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		if errors.Is(err, errCorrupt) {
			return ImpersonationContext{}, err
		}
		return ImpersonationContext{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}

	switch w.Version {
	case 0, impersonationFormatVersionV1:
	default:
		return ImpersonationContext{}, fmt.Errorf("%w: unsupported impersonation version %d", errCorrupt, w.Version)
	}

	c := ImpersonationContext{
		Active:               w.Active,
		OriginalUser:         w.OriginalUser,
		ImpersonatedEntityID: w.ImpersonatedEntityID,
	}
	if !c.Valid() {
		return ImpersonationContext{}, fmt.Errorf("%w: active context without original user", errCorrupt)
	}
	return c, nil
}
