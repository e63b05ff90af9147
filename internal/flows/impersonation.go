package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goGate/session"
)

// EnterFailureKind classifies impersonation entry failures for root-level mapping.
type EnterFailureKind int

const (
	EnterFailureNone EnterFailureKind = iota
	EnterFailureActive
	EnterFailureNotPermitted
	EnterFailureNoSession
	EnterFailureInvalidTarget
	EnterFailureResolve
	EnterFailureStorage
)

var errResolvedIdentity = errors.New("resolved identity is incomplete")

// ImpersonationStore is the slice of session.Store both impersonation flows need.
type ImpersonationStore interface {
	ReadSession(ctx context.Context) (*session.Session, error)
	ReadImpersonationContext(ctx context.Context) (*session.ImpersonationContext, error)
	BeginImpersonation(ctx context.Context, c session.ImpersonationContext, impersonated session.User) error
	BeginExit(ctx context.Context, original session.User) error
	ClearImpersonationContext(ctx context.Context) error
}

// EnterDeps captures impersonation entry dependencies.
type EnterDeps struct {
	Store        ImpersonationStore
	ParseRole    func(raw string) (string, error)
	RequiredRole string
	Resolve      func(ctx context.Context, entityID string) (session.User, error)
}

// EnterResult returns the stored context or a classified failure.
type EnterResult struct {
	Failure      EnterFailureKind
	Err          error
	Original     *session.User
	Impersonated *session.User
	Context      session.ImpersonationContext
}

// RunEnter checks the entry preconditions, resolves the target identity and
// stores context and impersonated user in one batch.
func RunEnter(ctx context.Context, entityID string, deps EnterDeps) EnterResult {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return EnterResult{Failure: EnterFailureInvalidTarget}
	}

	imp, err := deps.Store.ReadImpersonationContext(ctx)
	if err != nil {
		return EnterResult{Failure: EnterFailureStorage, Err: err}
	}
	if imp != nil {
		return EnterResult{Failure: EnterFailureActive}
	}

	sess, err := deps.Store.ReadSession(ctx)
	if err != nil {
		return EnterResult{Failure: EnterFailureStorage, Err: err}
	}
	if sess == nil {
		return EnterResult{Failure: EnterFailureNoSession}
	}
	original := sess.User
	roleName, err := deps.ParseRole(original.Role)
	if err != nil || roleName != deps.RequiredRole {
		return EnterResult{Failure: EnterFailureNotPermitted, Original: &original, Err: err}
	}

	target, err := deps.Resolve(ctx, entityID)
	if err != nil {
		return EnterResult{Failure: EnterFailureResolve, Original: &original, Err: err}
	}
	if target.ID == "" {
		return EnterResult{Failure: EnterFailureInvalidTarget, Original: &original, Err: errResolvedIdentity}
	}
	if _, err := deps.ParseRole(target.Role); err != nil {
		return EnterResult{
			Failure:  EnterFailureInvalidTarget,
			Original: &original,
			Err:      fmt.Errorf("%w: %v", errResolvedIdentity, err),
		}
	}
	if target.EntityID == "" {
		target.EntityID = entityID
	}

	c := session.ImpersonationContext{
		Active:               true,
		OriginalUser:         &original,
		ImpersonatedEntityID: entityID,
	}
	if err := deps.Store.BeginImpersonation(ctx, c, target); err != nil {
		// Another enter stored its context while the target was resolving.
		if errors.Is(err, session.ErrImpersonationActive) {
			return EnterResult{Failure: EnterFailureActive, Original: &original}
		}
		return EnterResult{Failure: EnterFailureStorage, Original: &original, Err: err}
	}

	return EnterResult{Original: &original, Impersonated: &target, Context: c}
}

// ExitDeps captures impersonation exit dependencies.
type ExitDeps struct {
	Store ImpersonationStore
}

// ExitResult reports what RunExit did.
//
// Performed is true once phase 1 is stored. ClearErr is a phase 2 failure; the
// next gate evaluation finishes the restore from the exit marker.
type ExitResult struct {
	Performed bool
	Original  *session.User
	EntityID  string
	Err       error
	ClearErr  error
}

// RunExit writes the exit marker with the restored user, then clears the
// impersonation context. Without a stored context it does nothing.
func RunExit(ctx context.Context, deps ExitDeps) ExitResult {
	imp, err := deps.Store.ReadImpersonationContext(ctx)
	if err != nil {
		return ExitResult{Err: err}
	}
	if imp == nil {
		return ExitResult{}
	}

	original := *imp.OriginalUser
	if err := deps.Store.BeginExit(ctx, original); err != nil {
		return ExitResult{Err: err}
	}

	res := ExitResult{
		Performed: true,
		Original:  &original,
		EntityID:  imp.ImpersonatedEntityID,
	}
	res.ClearErr = deps.Store.ClearImpersonationContext(ctx)
	return res
}
