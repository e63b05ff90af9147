package goGate

import (
	"context"
	"sync"
)

// NavigationState is the per-navigation gate state machine:
// Idle -> Evaluating -> {Allowed, RedirectIssued}. A superseded navigation
// ends Cancelled.
type NavigationState int

const (
	NavigationIdle NavigationState = iota
	NavigationEvaluating
	NavigationAllowed
	NavigationRedirectIssued
	NavigationCancelled
)

func (s NavigationState) String() string {
	switch s {
	case NavigationEvaluating:
		return "evaluating"
	case NavigationAllowed:
		return "allowed"
	case NavigationRedirectIssued:
		return "redirect_issued"
	case NavigationCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Navigation is one page view. Its Context lives until the next Navigate call
// or Cancel; fetches for the page should use it so they stop when the user
// navigates away.
type Navigation struct {
	ID   string
	Path string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    NavigationState
	decision Decision
}

func newNavigation(parent context.Context, id, path string) *Navigation {
	ctx, cancel := context.WithCancel(WithNavigationID(parent, id))
	return &Navigation{ID: id, Path: path, ctx: ctx, cancel: cancel}
}

func (n *Navigation) Context() context.Context { return n.ctx }

func (n *Navigation) State() NavigationState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Navigation) Decision() Decision {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.decision
}

// Cancel ends the navigation's context. A navigation still evaluating becomes
// Cancelled; a settled one keeps its state.
func (n *Navigation) Cancel() {
	n.mu.Lock()
	if n.state == NavigationIdle || n.state == NavigationEvaluating {
		n.state = NavigationCancelled
	}
	n.mu.Unlock()
	n.cancel()
}

func (n *Navigation) begin() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != NavigationIdle {
		return false
	}
	n.state = NavigationEvaluating
	return true
}

func (n *Navigation) settle(d Decision) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != NavigationEvaluating {
		return false
	}
	n.decision = d
	if d.Kind == DecisionRedirect {
		n.state = NavigationRedirectIssued
	} else {
		n.state = NavigationAllowed
	}
	return true
}
