package flows

import (
	"context"

	"github.com/MrEthical07/goGate/route"
	"github.com/MrEthical07/goGate/session"
)

// GateOutcome is the kind of decision reached by RunGate.
type GateOutcome int

const (
	GateAllow GateOutcome = iota
	GateRedirect
)

// GateReason names the rule that produced a gate result.
type GateReason string

const (
	ReasonExitRecovery  GateReason = "exit_recovery"
	ReasonPublic        GateReason = "public"
	ReasonImpersonation GateReason = "impersonation"
	ReasonNoSession     GateReason = "no_session"
	ReasonTokenExpired  GateReason = "token_expired"
	ReasonInvalidToken  GateReason = "invalid_token"
	ReasonInvalidRole   GateReason = "invalid_role"
	ReasonLanding       GateReason = "landing"
	ReasonForbidden     GateReason = "forbidden"
	ReasonStorageError  GateReason = "storage_error"
	ReasonAllowed       GateReason = "allowed"
)

// GateStore is the slice of session.Store the gate needs.
type GateStore interface {
	TakeExitMarker(ctx context.Context) (bool, error)
	ReadImpersonationContext(ctx context.Context) (*session.ImpersonationContext, error)
	FinishExit(ctx context.Context, original session.User) error
	ReadSession(ctx context.Context) (*session.Session, error)
	ClearSession(ctx context.Context) error
}

// GateDeps captures gate evaluation dependencies.
type GateDeps struct {
	Store            GateStore
	Classify         func(path string) route.Requirement
	Allows           func(req route.Requirement, role string) bool
	ParseRole        func(raw string) (string, error)
	Home             func(role string) (string, bool)
	TokenExpired     func(token string) (bool, error)
	IsLanding        func(path string) bool
	LoginPath        string
	UnauthorizedPath string
	SuperAdminPrefix string
}

// GateResult is the decision for one normalized path.
//
// Err carries a best-effort failure that did not change the outcome, or the
// storage failure behind a ReasonStorageError redirect.
type GateResult struct {
	Outcome      GateOutcome
	Reason       GateReason
	Path         string
	ReturnTo     string
	Role         string
	User         *session.User
	ExitConsumed bool
	Recovered    bool
	Err          error
}

// RunGate applies the gate rules to path in order; the first matching rule wins.
// path must already be normalized.
func RunGate(ctx context.Context, path string, deps GateDeps) GateResult {
	var res GateResult

	// Rule 1: a pending exit is consumed by exactly one evaluation.
	consumed, err := deps.Store.TakeExitMarker(ctx)
	if err != nil {
		res.Err = err
	}
	if consumed {
		res.ExitConsumed = true
		imp, err := deps.Store.ReadImpersonationContext(ctx)
		switch {
		case err != nil:
			res.Err = err
		case imp != nil:
			if err := deps.Store.FinishExit(ctx, *imp.OriginalUser); err != nil {
				res.Err = err
			} else {
				res.Recovered = true
			}
		}
		if deps.SuperAdminPrefix != "" && route.HasSegmentPrefix(path, deps.SuperAdminPrefix) {
			res.Outcome = GateAllow
			res.Reason = ReasonExitRecovery
			return res
		}
	}

	req := deps.Classify(path)

	// Rule 2
	if req.Access == route.Public {
		res.Outcome = GateAllow
		res.Reason = ReasonPublic
		return res
	}

	// Rule 3: an active impersonation wins over every later rule.
	imp, err := deps.Store.ReadImpersonationContext(ctx)
	if err != nil {
		res.Err = err
	} else if imp != nil {
		res.Outcome = GateAllow
		res.Reason = ReasonImpersonation
		return res
	}

	// Rule 4
	sess, err := deps.Store.ReadSession(ctx)
	if err != nil {
		res.Err = err
		return redirectLogin(res, path, ReasonStorageError, deps)
	}
	if sess == nil {
		return redirectLogin(res, path, ReasonNoSession, deps)
	}
	if deps.TokenExpired != nil {
		expired, err := deps.TokenExpired(sess.Token)
		if err != nil || expired {
			reason := ReasonTokenExpired
			if err != nil {
				reason = ReasonInvalidToken
			}
			if clearErr := deps.Store.ClearSession(ctx); clearErr != nil {
				res.Err = clearErr
			}
			return redirectLogin(res, path, reason, deps)
		}
	}

	// Rule 5
	roleName, err := deps.ParseRole(sess.User.Role)
	if err != nil {
		if clearErr := deps.Store.ClearSession(ctx); clearErr != nil {
			res.Err = clearErr
		}
		return redirectLogin(res, path, ReasonInvalidRole, deps)
	}
	res.Role = roleName
	user := sess.User
	res.User = &user

	home, hasHome := deps.Home(roleName)

	// Rule 6
	if hasHome && deps.IsLanding != nil && deps.IsLanding(path) && home != path {
		res.Outcome = GateRedirect
		res.Reason = ReasonLanding
		res.Path = home
		return res
	}

	// Rule 7
	if req.Access == route.RequiresRoles && !deps.Allows(req, roleName) {
		res.Outcome = GateRedirect
		res.Reason = ReasonForbidden
		if hasHome && home != path {
			res.Path = home
		} else {
			res.Path = deps.UnauthorizedPath
		}
		return res
	}

	res.Outcome = GateAllow
	res.Reason = ReasonAllowed
	return res
}

func redirectLogin(res GateResult, path string, reason GateReason, deps GateDeps) GateResult {
	res.Outcome = GateRedirect
	res.Reason = reason
	res.Path = deps.LoginPath
	if path != "/" && path != deps.LoginPath {
		res.ReturnTo = path
	}
	return res
}
