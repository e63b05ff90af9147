package middleware

import (
	"context"
	"errors"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
)

type decisionContextKey struct{}

// DecisionFromContext returns the gate decision Guard attached to the request.
func DecisionFromContext(ctx context.Context) (goGate.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(goGate.Decision)
	return d, ok
}

// Guard evaluates every request path as a navigation. Allowed requests reach
// next with the decision in their context; redirects become 303 responses to
// Decision.Location. A request superseded by a newer navigation gets no
// response.
func Guard(engine *goGate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "gate unavailable", http.StatusServiceUnavailable)
				return
			}

			ctx := goGate.WithTrigger(r.Context(), goGate.TriggerRouteChange)
			_, d, err := engine.Navigate(ctx, r.URL.Path)
			switch {
			case errors.Is(err, context.Canceled):
				return
			case errors.Is(err, goGate.ErrEngineNotReady):
				http.Error(w, "gate unavailable", http.StatusServiceUnavailable)
				return
			case err != nil:
				http.Error(w, "gate failed", http.StatusInternalServerError)
				return
			}

			if d.Kind == goGate.DecisionRedirect {
				http.Redirect(w, r, d.Location(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), decisionContextKey{}, d)))
		})
	}
}
