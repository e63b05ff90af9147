package goGate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goGate/client"
	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/logging"
	"github.com/MrEthical07/goGate/kv"
	"github.com/MrEthical07/goGate/role"
	"github.com/MrEthical07/goGate/route"
	"github.com/MrEthical07/goGate/session"
	"github.com/MrEthical07/goGate/token"
)

// Engine is the session and authorization control plane.
//
// Engine instances are built once by [Builder.Build] and are safe for
// concurrent use. Gate evaluations are serialized; enters and exits are
// single-shot.
type Engine struct {
	config       Config
	roles        *role.Registry
	routes       *route.Classifier
	backend      kv.Store
	ownsBackend  bool
	store        *session.Store
	client       *client.Client
	inspector    *token.Inspector
	resolver     IdentityResolver
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	flows        flows.Deps
	exitRedirect string

	gate     chan struct{}
	entering atomic.Bool
	exiting  atomic.Bool
	closed   atomic.Bool

	navMu sync.Mutex
	nav   *Navigation
}

// Close cancels the current navigation, drains the audit queue and closes a
// backend the builder opened. It is safe to call more than once.
func (e *Engine) Close() error {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.navMu.Lock()
	if e.nav != nil {
		e.nav.Cancel()
		e.nav = nil
	}
	e.navMu.Unlock()

	e.audit.Close()
	if e.ownsBackend && e.backend != nil {
		return e.backend.Close()
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Client returns the request client. Its bearer token is read from the
// session store on every network call.
func (e *Engine) Client() *client.Client {
	if e == nil {
		return nil
	}
	return e.client
}

func (e *Engine) Roles() *role.Registry { return e.roles }

func (e *Engine) Config() Config { return cloneConfig(e.config) }

// Classify returns the route requirement for path without touching the session.
func (e *Engine) Classify(path string) route.Requirement {
	return e.routes.Classify(path)
}

// CurrentSession returns the stored session, or nil when signed out.
func (e *Engine) CurrentSession(ctx context.Context) (*session.Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.store.ReadSession(ctx)
}

// Impersonation returns the active impersonation context, or nil.
func (e *Engine) Impersonation(ctx context.Context) (*session.ImpersonationContext, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.store.ReadImpersonationContext(ctx)
}

/*
====================================
HOOKS
====================================
*/

func (e *Engine) onHeal(ev session.HealEvent) {
	e.metrics.Inc(MetricSessionHealed)
	e.logger.Warn("session state healed", "kind", string(ev.Kind), "reason", ev.Reason)
	e.emitAudit(context.Background(), AuditEvent{
		EventType: AuditSessionHealed,
		Success:   true,
		Error:     ErrCorruptState.Error(),
		Metadata:  map[string]string{"kind": string(ev.Kind), "reason": ev.Reason},
	})
}

// onUnauthorized ends the session after a 401, unless impersonating: the
// impersonated identity's token is the super administrator's own.
func (e *Engine) onUnauthorized(ctx context.Context, serr *client.StatusError) {
	e.metrics.Inc(MetricUnauthorizedResponse)

	err := e.store.ClearSession(ctx)
	switch {
	case errors.Is(err, session.ErrImpersonationActive):
		e.logger.Info("401 while impersonating, session kept", "url", serr.URL)
		return
	case err != nil:
		e.metrics.Inc(MetricStorageError)
		e.logger.Warn("clear session after 401 failed", "url", serr.URL, logging.Err(err))
		return
	}

	e.client.Purge()
	e.logger.Info("session cleared after 401", "method", serr.Method, "url", serr.URL)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditUnauthorizedResponse,
		Success:   true,
		Path:      serr.URL,
		Metadata:  map[string]string{"method": serr.Method},
	})
}
