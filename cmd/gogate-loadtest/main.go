// Command gogate-loadtest measures gate evaluation and request-client
// throughput against a Redis-backed session store.
//
// The evaluate phase runs concurrent navigations across the default route
// table for a signed-in user. The fetch phase fires concurrent GETs at a
// local backend and reports how many reached it after deduplication and
// caching.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/session"
	"github.com/alicebob/miniredis/v2"
)

var navigationPaths = []string{
	"/",
	"/dashboard",
	"/manager/dashboard",
	"/manager/reviews/12",
	"/reviews/7",
	"/employee/goals",
	"/settings",
	"/login",
}

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		paths       = flag.Int("paths", 16, "distinct GET paths in the fetch phase")
		backendLag  = flag.Duration("backend-latency", 2*time.Millisecond, "simulated backend latency")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gg", "session key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *paths <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops and paths must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}

	var upstream atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		upstream.Add(1)
		time.Sleep(*backendLag)
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer backend.Close()

	cfg := goGate.DefaultConfig()
	cfg.Session.Backend = goGate.BackendRedis
	cfg.Session.RedisAddr = addr
	cfg.Session.Prefix = *prefix
	cfg.Client.BaseURL = backend.URL
	cfg.Metrics.Enabled = true
	cfg.Logging.Level = "error"

	engine, err := goGate.New().WithConfig(cfg).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.Login(ctx, "loadtest-token", session.User{ID: "m-1", Role: "manager"}); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	evalStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Evaluate(ctx, navigationPaths[r.Intn(len(navigationPaths))])
		return err
	})
	fetchStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		var out map[string]any
		return engine.Client().Get(ctx, fmt.Sprintf("/reviews?page=%d", r.Intn(*paths)), &out)
	})

	snap := engine.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("evaluate", evalStats)
	printStats("fetch", fetchStats)
	fmt.Printf("fetch: upstream=%d cache_hits=%d deduplicated=%d\n",
		upstream.Load(),
		snap.Counters[goGate.MetricCacheHit],
		snap.Counters[goGate.MetricRequestDeduplicated],
	)
}

// runPhase runs op ops times across concurrency workers and records latencies.
func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
