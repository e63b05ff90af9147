package goGate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/goGate/client"
	"github.com/MrEthical07/goGate/internal/logging"
	"github.com/MrEthical07/goGate/session"
)

// Login stores token and user as the current session.
//
// The role is normalized to its canonical name; an unknown role is
// ErrInvalidSession. Login refuses while impersonating. The GET cache is
// purged because the identity changed.
func (e *Engine) Login(ctx context.Context, token string, user session.User) error {
	if err := e.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidSession)
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidSession)
	}
	canonical, err := e.roles.Parse(user.Role)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	user.Role = canonical

	active, err := e.store.ImpersonationActive(ctx)
	if err != nil {
		e.metrics.Inc(MetricStorageError)
		return err
	}
	if active {
		return ErrImpersonationActive
	}

	if err := e.store.WriteSession(ctx, session.Session{Token: token, User: user}); err != nil {
		e.metrics.Inc(MetricStorageError)
		return err
	}
	e.client.Purge()

	e.metrics.Inc(MetricLogin)
	e.logger.Info("login", "user_id", user.ID, "role", user.Role)
	e.emitAudit(ctx, AuditEvent{
		EventType:    AuditLogin,
		UserID:       user.ID,
		Role:         user.Role,
		NavigationID: NavigationIDFromContext(ctx),
		Success:      true,
	})
	return nil
}

// Authenticate posts credentials to the backend login endpoint and stores the
// returned session. A 401 from the backend is ErrUnauthenticated.
func (e *Engine) Authenticate(ctx context.Context, credentials any) (*session.Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var resp LoginResponse
	if err := e.client.Post(ctx, e.config.Client.LoginPath, credentials, &resp); err != nil {
		if client.IsStatus(err, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return nil, err
	}
	if err := e.Login(ctx, resp.Token, resp.User); err != nil {
		return nil, err
	}
	return e.store.ReadSession(ctx)
}

// Logout removes every session key, ending an impersonation too, and purges
// the GET cache. Logging out without a session is not an error.
func (e *Engine) Logout(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}

	var userID, impersonator string
	if imp, err := e.store.ReadImpersonationContext(ctx); err == nil && imp != nil {
		impersonator = imp.OriginalUser.ID
	}
	if sess, err := e.store.ReadSession(ctx); err == nil && sess != nil {
		userID = sess.User.ID
	}

	if err := e.store.ClearAll(ctx); err != nil {
		e.metrics.Inc(MetricStorageError)
		e.logger.Warn("logout failed", logging.Err(err))
		return err
	}
	e.client.Purge()

	e.metrics.Inc(MetricLogout)
	e.logger.Info("logout", "user_id", userID)
	e.emitAudit(ctx, AuditEvent{
		EventType:      AuditLogout,
		UserID:         userID,
		ImpersonatorID: impersonator,
		Success:        true,
	})
	return nil
}
