package goGate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/goGate/client"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/logging"
	"github.com/MrEthical07/goGate/session"
)

// EnterImpersonation makes the current super administrator act as entityID.
//
// Precondition failures (already impersonating, not the required role, signed
// out) are ErrImpersonationPreconditionFailed, matching the more specific
// sentinel as well. An enter started while another is still resolving is
// rejected as already impersonating. The resolved identity becomes the session
// user; the GET cache is purged.
func (e *Engine) EnterImpersonation(ctx context.Context, entityID string) (*session.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var res flows.EnterResult
	if e.entering.CompareAndSwap(false, true) {
		defer e.entering.Store(false)
		res = flows.RunEnter(ctx, entityID, e.flows.Enter)
	} else {
		res = flows.EnterResult{Failure: flows.EnterFailureActive}
	}
	if res.Failure != flows.EnterFailureNone {
		err := mapEnterFailure(res)
		e.metrics.Inc(MetricImpersonationEnterRejected)
		if res.Failure == flows.EnterFailureStorage {
			e.metrics.Inc(MetricStorageError)
		}
		e.logger.Warn("impersonation rejected", "entity_id", entityID, logging.Err(err))
		e.emitAudit(ctx, AuditEvent{
			EventType:      AuditImpersonationEnterRejected,
			ImpersonatorID: userID(res.Original),
			EntityID:       entityID,
			Success:        false,
			Error:          err.Error(),
		})
		return nil, err
	}

	e.client.Purge()
	e.metrics.Inc(MetricImpersonationEnter)
	e.logger.Info("impersonation started",
		"impersonator_id", res.Original.ID,
		"entity_id", res.Context.ImpersonatedEntityID,
		"user_id", res.Impersonated.ID,
	)
	e.emitAudit(ctx, AuditEvent{
		EventType:      AuditImpersonationEnter,
		UserID:         res.Impersonated.ID,
		Role:           res.Impersonated.Role,
		ImpersonatorID: res.Original.ID,
		EntityID:       res.Context.ImpersonatedEntityID,
		Success:        true,
	})
	return res.Impersonated, nil
}

func mapEnterFailure(res flows.EnterResult) error {
	switch res.Failure {
	case flows.EnterFailureActive:
		return fmt.Errorf("%w: %w", ErrImpersonationPreconditionFailed, ErrImpersonationActive)
	case flows.EnterFailureNotPermitted:
		return fmt.Errorf("%w: %w", ErrImpersonationPreconditionFailed, ErrUnauthorized)
	case flows.EnterFailureNoSession:
		return fmt.Errorf("%w: %w", ErrImpersonationPreconditionFailed, ErrUnauthenticated)
	case flows.EnterFailureInvalidTarget:
		if res.Err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTarget, res.Err)
		}
		return ErrInvalidTarget
	case flows.EnterFailureResolve:
		if client.IsStatus(res.Err, http.StatusNotFound) {
			return fmt.Errorf("%w: %v", ErrInvalidTarget, res.Err)
		}
		return res.Err
	default:
		return res.Err
	}
}

// ExitImpersonation ends the active impersonation and returns the redirect the
// caller must perform with a full reload.
//
// It is idempotent: with no impersonation active, or while another exit is
// running, it returns a DecisionNone and no error. Only storage failures in
// the first phase are returned.
func (e *Engine) ExitImpersonation(ctx context.Context) (Decision, error) {
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	if !e.exiting.CompareAndSwap(false, true) {
		e.metrics.Inc(MetricImpersonationExitNoop)
		return Decision{Kind: DecisionNone, Reason: "exit_in_progress"}, nil
	}
	defer e.exiting.Store(false)

	res := flows.RunExit(ctx, e.flows.Exit)
	if res.Err != nil {
		e.metrics.Inc(MetricStorageError)
		e.logger.Warn("impersonation exit failed", logging.Err(res.Err))
		return Decision{Kind: DecisionNone}, res.Err
	}
	if !res.Performed {
		e.metrics.Inc(MetricImpersonationExitNoop)
		return Decision{Kind: DecisionNone, Reason: "not_impersonating"}, nil
	}
	if res.ClearErr != nil {
		e.metrics.Inc(MetricStorageError)
		e.logger.Warn("impersonation context not cleared, gate will finish the exit", logging.Err(res.ClearErr))
	}

	e.client.Purge()
	e.metrics.Inc(MetricImpersonationExit)
	e.logger.Info("impersonation ended", "user_id", res.Original.ID, "entity_id", res.EntityID)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditImpersonationExit,
		UserID:    res.Original.ID,
		Role:      res.Original.Role,
		EntityID:  res.EntityID,
		Success:   true,
	})

	return Decision{
		Kind:       DecisionRedirect,
		Path:       e.exitRedirect,
		Reason:     "impersonation_exit",
		FullReload: true,
	}, nil
}

func userID(u *session.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

/*
====================================
IDENTITY RESOLVER
====================================
*/

var errEmptyIdentity = errors.New("identity response has no user")

// clientResolver posts to the identity path through the request client.
type clientResolver struct {
	client *client.Client
	path   string
}

func (r clientResolver) ResolveIdentity(ctx context.Context, entityID string) (session.User, error) {
	p := strings.ReplaceAll(r.path, "{id}", url.PathEscape(entityID))
	resp, err := r.client.Do(ctx, client.Request{Method: http.MethodPost, Path: p})
	if err != nil {
		return session.User{}, err
	}

	var wrapped struct {
		User *session.User `json:"user"`
	}
	if err := resp.Decode(&wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}
	var bare session.User
	if err := resp.Decode(&bare); err != nil {
		return session.User{}, err
	}
	if bare.ID == "" {
		return session.User{}, fmt.Errorf("%w: %w", client.ErrDecode, errEmptyIdentity)
	}
	return bare, nil
}
