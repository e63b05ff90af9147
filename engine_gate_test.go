package goGate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/kv"
	"github.com/MrEthical07/goGate/token"
)

func TestEvaluateRoleRedirectMatrix(t *testing.T) {
	cases := []struct {
		role string
		path string
		kind DecisionKind
		to   string
	}{
		{"manager", "/settings", DecisionRedirect, "/manager/dashboard"},
		{"admin", "/dashboard", DecisionAllow, ""},
		{"superadmin", "/super-admin/users", DecisionAllow, ""},
		{"manager", "/super-admin/users", DecisionRedirect, "/manager/dashboard"},
		{"employee", "/", DecisionRedirect, "/employee/dashboard"},
		{"Super Admin", "/dashboard", DecisionRedirect, "/super-admin/dashboard"},
		{"employee", "/employee/goals/?tab=mine", DecisionAllow, ""},
	}

	for _, tc := range cases {
		te := newTestEngine(t)
		te.login(t, "u1", tc.role)

		d := te.evaluate(t, tc.path)
		if d.Kind != tc.kind || d.Path != tc.to {
			t.Fatalf("%s %s: got %s %q (%s)", tc.role, tc.path, d.Kind, d.Path, d.Reason)
		}
	}
}

func TestEvaluateWithoutSessionRedirectsToLogin(t *testing.T) {
	te := newTestEngine(t)

	d := te.evaluate(t, "/manager/reviews?page=2")
	if d.Kind != DecisionRedirect || d.Path != "/login" || d.ReturnTo != "/manager/reviews" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if got := d.Location(); got != "/login?returnTo=%2Fmanager%2Freviews" {
		t.Fatalf("unexpected location %q", got)
	}

	if d := te.evaluate(t, "/login"); d.Kind != DecisionAllow {
		t.Fatalf("login page must be public, got %+v", d)
	}

	snap := te.engine.MetricsSnapshot()
	if snap.Counters[MetricRedirectLogin] != 1 || snap.Counters[MetricAllow] != 1 || snap.Counters[MetricEvaluate] != 2 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
}

func TestEvaluateHealsCorruptSession(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()
	err := te.backend.Apply(ctx,
		kv.Set("gg:token", "tok"),
		kv.Set("gg:user", "{not json"),
		kv.Set("ui:theme", "dark"),
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	d := te.evaluate(t, "/dashboard")
	if d.Kind != DecisionRedirect || d.Path != "/login" {
		t.Fatalf("expected login redirect, got %+v", d)
	}
	if _, ok, _ := te.backend.Get(ctx, "gg:token"); ok {
		t.Fatal("expected token removed")
	}
	if v, ok, _ := te.backend.Get(ctx, "ui:theme"); !ok || v != "dark" {
		t.Fatal("foreign keys must survive a heal")
	}

	ev := nextAudit(t, te.sink, AuditSessionHealed)
	if ev.Metadata["reason"] != "unparseable user" {
		t.Fatalf("unexpected heal event %+v", ev)
	}
	if te.engine.MetricsSnapshot().Counters[MetricSessionHealed] != 1 {
		t.Fatal("expected heal metric")
	}
}

func TestEvaluateExpiredJWTClearsSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	te := newTestEngine(t, withClock(func() time.Time { return now }))

	signer, err := token.NewSigner(token.SignerConfig{
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte("dev-secret"),
		TTL:           10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	signer.SetClock(func() time.Time { return now.Add(-time.Hour) })
	stale, err := signer.Sign("u1", "admin")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	signer.SetClock(func() time.Time { return now })
	fresh, _ := signer.Sign("u1", "admin")

	ctx := context.Background()
	if err := te.engine.Login(ctx, fresh, userOf("u1", "admin")); err != nil {
		t.Fatalf("login: %v", err)
	}
	if d := te.evaluate(t, "/settings"); d.Kind != DecisionAllow {
		t.Fatalf("fresh token must pass, got %+v", d)
	}

	if err := te.engine.Login(ctx, stale, userOf("u1", "admin")); err != nil {
		t.Fatalf("login: %v", err)
	}
	d := te.evaluate(t, "/settings")
	if d.Kind != DecisionRedirect || d.Path != "/login" || d.Reason != "token_expired" {
		t.Fatalf("expected expiry redirect, got %+v", d)
	}
	if sess, _ := te.engine.CurrentSession(ctx); sess != nil {
		t.Fatal("expected session cleared")
	}
	nextAudit(t, te.sink, AuditTokenExpired)
}

func TestEvaluateIsSerialized(t *testing.T) {
	te := newTestEngine(t)
	te.login(t, "u1", "admin")

	// Occupy the latch as if an evaluation were running.
	te.engine.gate <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := te.engine.Evaluate(ctx, "/dashboard"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected queued evaluation to give up with its context, got %v", err)
	}

	done := make(chan Decision, 1)
	go func() {
		d, _ := te.engine.Evaluate(context.Background(), "/dashboard")
		done <- d
	}()
	select {
	case <-done:
		t.Fatal("evaluation must wait for the running one")
	case <-time.After(50 * time.Millisecond):
	}

	<-te.engine.gate
	select {
	case d := <-done:
		if d.Kind != DecisionAllow {
			t.Fatalf("unexpected decision %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued evaluation never ran")
	}
}

func TestConcurrentEvaluationsAgree(t *testing.T) {
	te := newTestEngine(t)
	te.login(t, "u1", "manager")

	var wg sync.WaitGroup
	results := make(chan Decision, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := te.engine.Evaluate(context.Background(), "/settings")
			if err != nil {
				t.Errorf("evaluate: %v", err)
				return
			}
			results <- d
		}()
	}
	wg.Wait()
	close(results)

	for d := range results {
		if d.Kind != DecisionRedirect || d.Path != "/manager/dashboard" {
			t.Fatalf("unexpected decision %+v", d)
		}
	}
}

func TestNavigateCancelsPreviousNavigation(t *testing.T) {
	te := newTestEngine(t)
	te.login(t, "u1", "admin")

	te.engine.gate <- struct{}{}

	firstErr := make(chan error, 1)
	go func() {
		_, _, err := te.engine.Navigate(context.Background(), "/employees")
		firstErr <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if nav := te.engine.CurrentNavigation(); nav != nil && nav.State() == NavigationEvaluating {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first navigation never started")
		}
		time.Sleep(time.Millisecond)
	}
	first := te.engine.CurrentNavigation()

	secondDone := make(chan Decision, 1)
	go func() {
		_, d, _ := te.engine.Navigate(context.Background(), "/settings")
		secondDone <- d
	}()

	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected first navigation cancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first navigation was not cancelled")
	}
	if first.State() != NavigationCancelled || first.Context().Err() == nil {
		t.Fatalf("expected cancelled state, got %s", first.State())
	}

	<-te.engine.gate
	select {
	case d := <-secondDone:
		if d.Kind != DecisionAllow {
			t.Fatalf("unexpected decision %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second navigation never settled")
	}

	nav := te.engine.CurrentNavigation()
	if nav.State() != NavigationAllowed || nav.Path != "/settings" || nav.ID == "" {
		t.Fatalf("unexpected current navigation %+v state=%s", nav, nav.State())
	}
	if NavigationIDFromContext(nav.Context()) != nav.ID {
		t.Fatal("navigation context must carry its id")
	}
	if te.engine.MetricsSnapshot().Counters[MetricNavigationCancelled] == 0 {
		t.Fatal("expected cancellation metric")
	}
}

func TestNavigateRedirectState(t *testing.T) {
	te := newTestEngine(t)

	nav, d, err := te.engine.Navigate(context.Background(), "/settings")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if nav.State() != NavigationRedirectIssued || d.Path != "/login" || nav.Decision() != d {
		t.Fatalf("unexpected navigation state %s decision %+v", nav.State(), d)
	}
	if nav.Context().Err() != nil {
		t.Fatal("settled navigation context stays live until the next navigation")
	}
}
