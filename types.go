package goGate

import (
	"context"
	"net/url"

	"github.com/MrEthical07/goGate/session"
)

// DecisionKind is the outcome of a gate evaluation or an impersonation exit.
type DecisionKind int

const (
	// DecisionNone means nothing to do. ExitImpersonation returns it when no
	// impersonation is active.
	DecisionNone DecisionKind = iota
	// DecisionAllow renders the requested path.
	DecisionAllow
	// DecisionRedirect navigates to Decision.Path instead.
	DecisionRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "none"
	}
}

// Decision is what the caller must do for one navigation.
//
// ReturnTo is set on login redirects so the login page can resume the original
// navigation. FullReload asks the caller to reload the whole application
// rather than route in place.
type Decision struct {
	Kind       DecisionKind
	Path       string
	ReturnTo   string
	Reason     string
	FullReload bool
}

// Location returns the redirect target including the returnTo query parameter.
// It is empty unless Kind is DecisionRedirect.
func (d Decision) Location() string {
	if d.Kind != DecisionRedirect {
		return ""
	}
	if d.ReturnTo == "" {
		return d.Path
	}
	return d.Path + "?returnTo=" + url.QueryEscape(d.ReturnTo)
}

// IdentityResolver returns the identity a super administrator assumes when
// impersonating entityID.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, entityID string) (session.User, error)
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, entityID string) (session.User, error)

func (f IdentityResolverFunc) ResolveIdentity(ctx context.Context, entityID string) (session.User, error) {
	return f(ctx, entityID)
}

// LoginResponse is the backend's reply to a credential login.
type LoginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}
