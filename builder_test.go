package goGate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/goGate/route"
	"github.com/alicebob/miniredis/v2"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Logging.Level = "off"
	return cfg
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(quietConfig())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := quietConfig()
	cfg.Routes.LoginPath = ""
	if _, err := New().WithConfig(cfg).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuilderOpensBoltBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	cfg := quietConfig()
	cfg.Session.Backend = BackendBolt
	cfg.Session.BoltPath = path
	ctx := context.Background()

	e, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := e.Login(ctx, "tok", userOf("m-1", "manager")); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	sess, err := reopened.CurrentSession(ctx)
	if err != nil || sess == nil || sess.User.ID != "m-1" {
		t.Fatalf("expected session to survive restart, got %+v err=%v", sess, err)
	}
}

func TestBuilderOpensRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := quietConfig()
	cfg.Session.Backend = BackendRedis
	cfg.Session.RedisAddr = mr.Addr()
	ctx := context.Background()

	e, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	if err := e.Login(ctx, "tok", userOf("a-1", "admin")); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !mr.Exists("gg:token") {
		t.Fatalf("expected prefixed token key in redis, have %v", mr.Keys())
	}
	if d, _ := e.Evaluate(ctx, "/settings"); d.Kind != DecisionAllow {
		t.Fatalf("expected admin allowed on /settings, got %+v", d)
	}
}

func TestBuilderCustomRouteTable(t *testing.T) {
	table := route.Table{Rules: []route.RuleSpec{
		{Path: "/login", Access: "public"},
		{Path: "/unauthorized", Access: "public"},
		{Path: "/reports", Match: "prefix", Access: "roles", Roles: []string{"manager"}},
	}}
	cfg := quietConfig()
	e, err := New().WithConfig(cfg).WithRouteTable(table).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	if req := e.Classify("/reports/q3"); req.Access != route.RequiresRoles || req.Roles.Len() != 1 {
		t.Fatalf("unexpected requirement %+v", req)
	}
	if req := e.Classify("/settings"); req.Access != route.AnyAuthenticated {
		t.Fatalf("unlisted paths default to authenticated, got %+v", req)
	}
}

func TestClosedEngineIsNotReady(t *testing.T) {
	e, err := New().WithConfig(quietConfig()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := e.Evaluate(context.Background(), "/"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Login(context.Background(), "tok", userOf("u", "employee")); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
