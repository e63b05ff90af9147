package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/kv"
)

// ErrImpersonationActive is returned by [Store.ClearSession] while an
// impersonation context is stored, and by [Store.BeginImpersonation] when
// another context was stored first.
var ErrImpersonationActive = errors.New("impersonation active")

// ErrStorageUnavailable wraps backend failures.
var ErrStorageUnavailable = errors.New("session storage unavailable")

const (
	keyToken          = "token"
	keyUser           = "user"
	keyImpersonation  = "impersonation"
	keyExitTransition = "exit_transition"
)

// Store is the typed session store. It is safe for concurrent use as long as
// the backend is.
type Store struct {
	backend kv.Store
	prefix  string
	onHeal  HealFunc
}

// NewStore returns a Store namespacing its keys under prefix. onHeal may be nil.
func NewStore(backend kv.Store, prefix string, onHeal HealFunc) *Store {
	return &Store{
		backend: backend,
		prefix:  prefix,
		onHeal:  onHeal,
	}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

// Keys returns the four backend keys owned by the store.
func (s *Store) Keys() []string {
	return []string{
		s.key(keyToken),
		s.key(keyUser),
		s.key(keyImpersonation),
		s.key(keyExitTransition),
	}
}

func wrapBackend(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, kv.ErrConflict) {
		return ErrImpersonationActive
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func (s *Store) heal(ctx context.Context, kind HealKind, reason string, ops ...kv.Op) error {
	if len(ops) > 0 {
		if err := s.backend.Apply(ctx, ops...); err != nil {
			return wrapBackend(err)
		}
	}
	if s.onHeal != nil {
		s.onHeal(HealEvent{Kind: kind, Reason: reason})
	}
	return nil
}

/* ==================== SESSION ==================== */

// ReadSession returns the stored session, or nil when none is stored.
//
// A corrupt pair is deleted and reported as nil. Only backend failures are errors.
func (s *Store) ReadSession(ctx context.Context) (*Session, error) {
	token, hasToken, err := s.backend.Get(ctx, s.key(keyToken))
	if err != nil {
		return nil, wrapBackend(err)
	}
	rawUser, hasUser, err := s.backend.Get(ctx, s.key(keyUser))
	if err != nil {
		return nil, wrapBackend(err)
	}

	clearPair := []kv.Op{kv.Delete(s.key(keyToken)), kv.Delete(s.key(keyUser))}

	switch {
	case !hasToken && !hasUser:
		return nil, nil
	case hasToken && !hasUser:
		return nil, s.heal(ctx, HealSession, "token without user", clearPair...)
	case !hasToken && hasUser:
		return nil, s.heal(ctx, HealSession, "user without token", clearPair...)
	}

	if token == "" {
		return nil, s.heal(ctx, HealSession, "empty token", clearPair...)
	}
	user, err := DecodeUser(rawUser)
	if err != nil {
		return nil, s.heal(ctx, HealSession, "unparseable user", clearPair...)
	}
	return &Session{Token: token, User: user}, nil
}

// WriteSession stores token and user in one batch.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return errors.New("session: empty token")
	}
	rawUser, err := EncodeUser(sess.User)
	if err != nil {
		return err
	}
	return wrapBackend(s.backend.Apply(ctx,
		kv.Set(s.key(keyToken), sess.Token),
		kv.Set(s.key(keyUser), rawUser),
	))
}

// Token returns the bearer token without parsing the user.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, _, err := s.backend.Get(ctx, s.key(keyToken))
	if err != nil {
		return "", wrapBackend(err)
	}
	return token, nil
}

// ClearSession removes every key the store owns. It refuses while an
// impersonation context is active; use [Store.ClearAll] to end one deliberately.
func (s *Store) ClearSession(ctx context.Context) error {
	active, err := s.ImpersonationActive(ctx)
	if err != nil {
		return err
	}
	if active {
		return ErrImpersonationActive
	}
	return s.ClearAll(ctx)
}

// ClearAll removes token, user, impersonation context and exit marker.
func (s *Store) ClearAll(ctx context.Context) error {
	ops := make([]kv.Op, 0, 4)
	for _, k := range s.Keys() {
		ops = append(ops, kv.Delete(k))
	}
	return wrapBackend(s.backend.Apply(ctx, ops...))
}

/* ==================== IMPERSONATION ==================== */

// ReadImpersonationContext returns the active context, or nil.
//
// Corrupt or invariant-violating blobs are deleted and reported as nil. A
// stored context that is not active is stale and is removed quietly.
func (s *Store) ReadImpersonationContext(ctx context.Context) (*ImpersonationContext, error) {
	raw, ok, err := s.backend.Get(ctx, s.key(keyImpersonation))
	if err != nil {
		return nil, wrapBackend(err)
	}
	if !ok {
		return nil, nil
	}

	c, err := DecodeImpersonation(raw)
	if err != nil {
		return nil, s.heal(ctx, HealImpersonation, "invalid impersonation context", kv.Delete(s.key(keyImpersonation)))
	}
	if !c.Active {
		return nil, wrapBackend(s.backend.Apply(ctx, kv.Delete(s.key(keyImpersonation))))
	}
	return &c, nil
}

// ImpersonationActive reports whether an active context is stored.
func (s *Store) ImpersonationActive(ctx context.Context) (bool, error) {
	c, err := s.ReadImpersonationContext(ctx)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}

// WriteImpersonationContext stores c. Inactive or invalid contexts are rejected.
func (s *Store) WriteImpersonationContext(ctx context.Context, c ImpersonationContext) error {
	raw, err := encodeActive(c)
	if err != nil {
		return err
	}
	return wrapBackend(s.backend.Apply(ctx, kv.Set(s.key(keyImpersonation), raw)))
}

// ClearImpersonationContext removes the stored context. Missing is not an error.
func (s *Store) ClearImpersonationContext(ctx context.Context) error {
	return wrapBackend(s.backend.Apply(ctx, kv.Delete(s.key(keyImpersonation))))
}

// BeginImpersonation stores c and replaces the session user with impersonated
// in one batch. A stale exit marker is dropped in the same batch. The batch only
// applies if no context is stored; otherwise it is ErrImpersonationActive, also
// across processes sharing the backend.
func (s *Store) BeginImpersonation(ctx context.Context, c ImpersonationContext, impersonated User) error {
	raw, err := encodeActive(c)
	if err != nil {
		return err
	}
	rawUser, err := EncodeUser(impersonated)
	if err != nil {
		return err
	}
	return wrapBackend(s.backend.Apply(ctx,
		kv.RequireAbsent(s.key(keyImpersonation)),
		kv.Set(s.key(keyImpersonation), raw),
		kv.Set(s.key(keyUser), rawUser),
		kv.Delete(s.key(keyExitTransition)),
	))
}

func encodeActive(c ImpersonationContext) (string, error) {
	if !c.Active {
		return "", errors.New("session: impersonation context is not active")
	}
	if !c.Valid() {
		return "", errors.New("session: impersonation context requires original user and target")
	}
	return EncodeImpersonation(c)
}

/* ==================== EXIT TRANSITION ==================== */

// BeginExit writes the pending-restore marker and the restored user in one batch.
func (s *Store) BeginExit(ctx context.Context, original User) error {
	rawUser, err := EncodeUser(original)
	if err != nil {
		return err
	}
	return wrapBackend(s.backend.Apply(ctx,
		kv.Set(s.key(keyExitTransition), ExitMarkerPendingRestore),
		kv.Set(s.key(keyUser), rawUser),
	))
}

// FinishExit restores original as the session user and removes the
// impersonation context in one batch.
func (s *Store) FinishExit(ctx context.Context, original User) error {
	rawUser, err := EncodeUser(original)
	if err != nil {
		return err
	}
	return wrapBackend(s.backend.Apply(ctx,
		kv.Set(s.key(keyUser), rawUser),
		kv.Delete(s.key(keyImpersonation)),
	))
}

// TakeExitMarker consumes the exit marker. Exactly one concurrent caller
// observes true for each BeginExit. Unknown marker values are reported as a heal.
func (s *Store) TakeExitMarker(ctx context.Context) (bool, error) {
	v, ok, err := s.backend.Take(ctx, s.key(keyExitTransition))
	if err != nil {
		return false, wrapBackend(err)
	}
	if !ok {
		return false, nil
	}
	if v != ExitMarkerPendingRestore {
		return false, s.heal(ctx, HealExitMarker, "unknown exit marker value")
	}
	return true, nil
}

// ExitPending reports whether the marker is stored, without consuming it.
func (s *Store) ExitPending(ctx context.Context) (bool, error) {
	v, ok, err := s.backend.Get(ctx, s.key(keyExitTransition))
	if err != nil {
		return false, wrapBackend(err)
	}
	return ok && v == ExitMarkerPendingRestore, nil
}
