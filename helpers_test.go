package goGate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/kv/memory"
	"github.com/MrEthical07/goGate/session"
)

type testEngine struct {
	engine  *Engine
	backend *memory.Store
	sink    *ChannelSink
}

type engineOption func(*Builder)

func withBackendHandler(t *testing.T, h http.Handler) engineOption {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return func(b *Builder) {
		b.config.Client.BaseURL = srv.URL + "/api"
	}
}

func withResolver(r IdentityResolverFunc) engineOption {
	return func(b *Builder) { b.WithIdentityResolver(r) }
}

func withClock(now func() time.Time) engineOption {
	return func(b *Builder) { b.WithClock(now) }
}

func newTestEngine(t *testing.T, opts ...engineOption) testEngine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 64}
	cfg.Metrics = MetricsConfig{Enabled: true, EnableLatencyHistograms: true}
	cfg.Logging.Level = "off"

	backend := memory.New()
	sink := NewChannelSink(64)
	b := New().
		WithConfig(cfg).
		WithStorage(backend).
		WithAuditSink(sink)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return testEngine{engine: engine, backend: backend, sink: sink}
}

func (te testEngine) login(t *testing.T, id, roleName string) {
	t.Helper()
	if err := te.engine.Login(context.Background(), "tok-"+id, session.User{ID: id, Role: roleName}); err != nil {
		t.Fatalf("login %s: %v", id, err)
	}
}

func (te testEngine) evaluate(t *testing.T, path string) Decision {
	t.Helper()
	d, err := te.engine.Evaluate(context.Background(), path)
	if err != nil {
		t.Fatalf("evaluate %s: %v", path, err)
	}
	return d
}

func staticResolver(u session.User) IdentityResolverFunc {
	return func(_ context.Context, entityID string) (session.User, error) {
		out := u
		out.EntityID = entityID
		return out, nil
	}
}

// nextAudit waits for the next event of eventType, skipping others.
func nextAudit(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit event %q", eventType)
			return AuditEvent{}
		}
	}
}

func userOf(id, roleName string) session.User {
	return session.User{ID: id, Role: roleName}
}
