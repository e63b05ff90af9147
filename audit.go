package goGate

import (
	"context"
	"io"

	"github.com/MrEthical07/goGate/internal/audit"
)

// AuditEvent is one control-plane audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc = audit.SinkFunc

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	AuditLogin                      = "login"
	AuditLogout                     = "logout"
	AuditSessionHealed              = "session_healed"
	AuditTokenExpired               = "token_expired"
	AuditImpersonationEnter         = "impersonation_enter"
	AuditImpersonationEnterRejected = "impersonation_enter_rejected"
	AuditImpersonationExit          = "impersonation_exit"
	AuditExitTransitionConsumed     = "exit_transition_consumed"
	AuditUnauthorizedResponse       = "unauthorized_response"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, event)
}
