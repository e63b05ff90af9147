package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goGate "github.com/MrEthical07/goGate"
	"github.com/go-chi/chi/v5"
)

type fakeSource struct {
	snapshot goGate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters:   map[goGate.MetricID]uint64{},
			Histograms: map[goGate.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{
				goGate.MetricCacheHit: 7,
			},
			Histograms: map[goGate.MetricID][]uint64{
				goGate.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"gogate_cache_hit_total 7",
		"gogate_redirect_login_total 0",
		`gogate_request_latency_seconds_bucket{le="0.005"} 1`,
		`gogate_request_latency_seconds_bucket{le="+Inf"} 36`,
		"gogate_request_latency_seconds_count 36",
		"gogate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gogate_evaluate_latency_seconds") {
		t.Fatalf("histograms absent from the snapshot must not render, got:\n%s", out)
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	cfg := goGate.DefaultConfig()
	cfg.Logging.Level = "off"
	cfg.Metrics.Enabled = true
	engine, err := goGate.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Evaluate(context.Background(), "/login"); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", New(engine).Handler())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if got := resp.Header.Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if !strings.Contains(string(body), "gogate_allow_total 1") {
		t.Fatalf("expected allow counter, got:\n%s", body)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := New(fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{
				goGate.MetricEvaluate:       1000,
				goGate.MetricAllow:          900,
				goGate.MetricRedirectLogin:  60,
				goGate.MetricRedirectHome:   40,
				goGate.MetricCacheHit:       500,
				goGate.MetricCacheMiss:      120,
				goGate.MetricRequestFailure: 3,
			},
			Histograms: map[goGate.MetricID][]uint64{
				goGate.MetricEvaluateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
				goGate.MetricRequestLatency:  {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
