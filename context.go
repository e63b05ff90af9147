package goGate

import "context"

type navigationIDContextKey struct{}
type triggerContextKey struct{}

// Triggers recorded on audit events for the evaluation that caused them.
const (
	TriggerRouteChange  = "route_change"
	TriggerStorageEvent = "storage_event"
	TriggerTimer        = "timer"
)

// WithNavigationID attaches a navigation id to ctx. Navigate does this for
// every navigation; the id is copied onto audit events and log records.
func WithNavigationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, navigationIDContextKey{}, id)
}

// WithTrigger records what caused an evaluation (route change, storage event
// from another tab, timer).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerContextKey{}, trigger)
}

// NavigationIDFromContext returns the id set by WithNavigationID, or "".
func NavigationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(navigationIDContextKey{}).(string)
	return id
}

func triggerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	t, _ := ctx.Value(triggerContextKey{}).(string)
	return t
}
