package goGate

import (
	"errors"

	"github.com/MrEthical07/goGate/client"
	"github.com/MrEthical07/goGate/session"
)

var (
	// ErrUnauthenticated reports a missing or unusable session. The gate turns
	// it into a login redirect; Engine methods that need a session return it.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized reports a role that may not see the requested area.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCorruptState reports persisted state that failed validation.
	ErrCorruptState = errors.New("corrupt session state")
	// ErrNetworkFailure wraps transport errors from the request client.
	ErrNetworkFailure = client.ErrNetworkFailure
	// ErrRequestFailed matches every non-2xx response from the request client.
	ErrRequestFailed = client.ErrRequestFailed
	// ErrImpersonationPreconditionFailed is returned by EnterImpersonation when
	// the caller may not start an impersonation.
	ErrImpersonationPreconditionFailed = errors.New("impersonation precondition failed")
	// ErrImpersonationActive is returned when an operation is not allowed while impersonating.
	ErrImpersonationActive = session.ErrImpersonationActive
	// ErrImpersonationInactive is returned when no impersonation is stored.
	ErrImpersonationInactive = errors.New("impersonation inactive")
	// ErrStorageUnavailable wraps persisted store failures.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrInvalidTarget is returned for an empty or unresolvable impersonation target.
	ErrInvalidTarget = errors.New("invalid impersonation target")
	// ErrInvalidSession is returned by Login for an unusable token or user.
	ErrInvalidSession = errors.New("invalid session")
	// ErrEngineNotReady is returned by methods called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid config")
)
