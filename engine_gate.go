package goGate

import (
	"context"
	"time"

	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/logging"
	"github.com/MrEthical07/goGate/route"
	"github.com/google/uuid"
)

// Evaluate decides whether path may render.
//
// Evaluations are serialized: a concurrent call waits for the running one or
// returns ctx.Err() if its context ends first. Unauthenticated and
// unauthorized callers get a redirect Decision, never an error; errors are
// limited to ErrEngineNotReady and context cancellation.
func (e *Engine) Evaluate(ctx context.Context, path string) (Decision, error) {
	if err := e.ready(); err != nil {
		return Decision{}, err
	}

	select {
	case e.gate <- struct{}{}:
	case <-ctx.Done():
		e.metrics.Inc(MetricNavigationCancelled)
		return Decision{}, ctx.Err()
	}
	defer func() { <-e.gate }()

	start := time.Now()
	e.metrics.Inc(MetricEvaluate)

	p := route.Normalize(path)
	res := flows.RunGate(ctx, p, e.flows.Gate)
	e.observeGate(ctx, p, res)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricEvaluateLatency, time.Since(start))
	}

	if err := ctx.Err(); err != nil {
		e.metrics.Inc(MetricNavigationCancelled)
		return Decision{}, err
	}
	return decisionFromGate(res), nil
}

// Navigate starts a navigation to path, cancelling the previous one, and
// evaluates it. The returned Navigation's Context stays live until the next
// Navigate, so page fetches made with it are abandoned on navigation.
func (e *Engine) Navigate(ctx context.Context, path string) (*Navigation, Decision, error) {
	if err := e.ready(); err != nil {
		return nil, Decision{}, err
	}

	nav := newNavigation(ctx, uuid.NewString(), route.Normalize(path))

	e.navMu.Lock()
	if prev := e.nav; prev != nil {
		if prev.State() == NavigationEvaluating {
			e.metrics.Inc(MetricNavigationCancelled)
		}
		prev.Cancel()
	}
	e.nav = nav
	e.navMu.Unlock()

	if !nav.begin() {
		return nav, Decision{}, context.Canceled
	}
	d, err := e.Evaluate(nav.Context(), nav.Path)
	if err != nil {
		nav.Cancel()
		return nav, Decision{}, err
	}
	if !nav.settle(d) {
		return nav, Decision{}, context.Canceled
	}

	e.logger.Debug("navigation settled",
		"navigation_id", nav.ID,
		"path", nav.Path,
		"decision", d.Kind.String(),
		"reason", d.Reason,
		"location", d.Location(),
	)
	return nav, d, nil
}

// CurrentNavigation returns the latest navigation, or nil.
func (e *Engine) CurrentNavigation() *Navigation {
	e.navMu.Lock()
	defer e.navMu.Unlock()
	return e.nav
}

func decisionFromGate(res flows.GateResult) Decision {
	d := Decision{Reason: string(res.Reason)}
	if res.Outcome == flows.GateAllow {
		d.Kind = DecisionAllow
		return d
	}
	d.Kind = DecisionRedirect
	d.Path = res.Path
	d.ReturnTo = res.ReturnTo
	return d
}

func (e *Engine) observeGate(ctx context.Context, path string, res flows.GateResult) {
	navID := NavigationIDFromContext(ctx)

	if res.ExitConsumed {
		e.metrics.Inc(MetricExitMarkerConsumed)
		if res.Recovered {
			e.metrics.Inc(MetricExitRecovered)
		}
		e.emitAudit(ctx, AuditEvent{
			EventType:    AuditExitTransitionConsumed,
			NavigationID: navID,
			Path:         path,
			Success:      true,
			Metadata:     map[string]string{"recovered": boolString(res.Recovered)},
		})
	}
	if res.Err != nil {
		e.metrics.Inc(MetricStorageError)
		e.logger.Warn("gate storage error", "path", path, "reason", string(res.Reason), logging.Err(res.Err))
	}

	if res.Reason == flows.ReasonTokenExpired || res.Reason == flows.ReasonInvalidToken {
		e.metrics.Inc(MetricTokenExpired)
		meta := triggerMetadata(ctx)
		meta["reason"] = string(res.Reason)
		e.emitAudit(ctx, AuditEvent{
			EventType:    AuditTokenExpired,
			NavigationID: navID,
			Path:         path,
			Success:      true,
			Metadata:     meta,
		})
	}

	if res.Outcome == flows.GateAllow {
		e.metrics.Inc(MetricAllow)
		return
	}
	switch res.Path {
	case e.config.Routes.LoginPath:
		e.metrics.Inc(MetricRedirectLogin)
	case e.config.Routes.UnauthorizedPath:
		e.metrics.Inc(MetricRedirectUnauthorized)
	default:
		e.metrics.Inc(MetricRedirectHome)
	}
}

func triggerMetadata(ctx context.Context) map[string]string {
	meta := make(map[string]string, 2)
	if t := triggerFromContext(ctx); t != "" {
		meta["trigger"] = t
	}
	return meta
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
