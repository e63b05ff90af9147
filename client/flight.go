package client

import (
	"context"
	"sync"
)

type result struct {
	payload []byte
	status  int
	err     error
}

type flight struct {
	done      chan struct{}
	res       result
	waiters   int
	cancel    context.CancelFunc
	abandoned bool
}

// flightTable shares one in-flight fetch between concurrent callers of the
// same key. It differs from x/sync/singleflight in that each waiter may leave
// on its own context, and the fetch is cancelled when the last one leaves.
type flightTable struct {
	mu      sync.Mutex
	flights map[RequestKey]*flight
}

func newFlightTable() *flightTable {
	return &flightTable{flights: make(map[RequestKey]*flight)}
}

// do joins or starts the flight for key. settle runs under the table lock once
// the fetch returns, and only if the flight was not abandoned. shared reports
// whether this caller joined an existing flight.
func (t *flightTable) do(
	ctx context.Context,
	key RequestKey,
	fetch func(context.Context) result,
	settle func(result),
) (res result, shared bool) {
	t.mu.Lock()
	f, ok := t.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{done: make(chan struct{}), cancel: cancel}
		t.flights[key] = f
		go t.run(fctx, key, f, fetch, settle)
	}
	f.waiters++
	t.mu.Unlock()

	select {
	case <-f.done:
		return f.res, ok
	case <-ctx.Done():
		t.leave(key, f)
		return result{err: ctx.Err()}, ok
	}
}

func (t *flightTable) run(ctx context.Context, key RequestKey, f *flight, fetch func(context.Context) result, settle func(result)) {
	res := fetch(ctx)

	t.mu.Lock()
	if t.flights[key] == f {
		delete(t.flights, key)
	}
	f.res = res
	if !f.abandoned && settle != nil {
		settle(res)
	}
	close(f.done)
	t.mu.Unlock()

	f.cancel()
}

func (t *flightTable) leave(key RequestKey, f *flight) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	select {
	case <-f.done:
		return
	default:
	}
	f.abandoned = true
	f.cancel()
	if t.flights[key] == f {
		delete(t.flights, key)
	}
}

// detach removes the flights whose key matches from the table. Their current
// waiters still receive the result; later callers start a fresh flight.
func (t *flightTable) detach(match func(RequestKey) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key := range t.flights {
		if match(key) {
			delete(t.flights, key)
			n++
		}
	}
	return n
}

// inFlight returns the number of pending keys.
func (t *flightTable) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flights)
}
