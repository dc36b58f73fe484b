package health

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonwraymond/searchcache/resilience"
)

// CircuitReporter is implemented by anything guarded by a circuit breaker,
// such as *resilience.Executor.
type CircuitReporter interface {
	CircuitState() resilience.State
}

// UpstreamChecker reports the circuit state of each data source. Cached
// responses keep flowing while a circuit is open, so a single open circuit
// only degrades the service; all of them open makes it unhealthy.
type UpstreamChecker struct {
	upstreams map[string]CircuitReporter
}

// NewUpstreamChecker creates a checker over upstreams keyed by data source.
func NewUpstreamChecker(upstreams map[string]CircuitReporter) *UpstreamChecker {
	return &UpstreamChecker{upstreams: upstreams}
}

// Name returns "upstream".
func (u *UpstreamChecker) Name() string {
	return "upstream"
}

// Check reads every circuit without touching the upstreams themselves.
func (u *UpstreamChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	if len(u.upstreams) == 0 {
		return Healthy("no upstreams configured")
	}

	details := make(map[string]any, len(u.upstreams))
	var open []string
	for name, r := range u.upstreams {
		state := r.CircuitState()
		details[name] = state.String()
		if state == resilience.StateOpen {
			open = append(open, name)
		}
	}
	sort.Strings(open)

	switch {
	case len(open) == 0:
		return Healthy("all circuits closed").WithDetails(details)
	case len(open) == len(u.upstreams):
		return Unhealthy("all circuits open", ErrCheckFailed).WithDetails(details)
	default:
		return Degraded(fmt.Sprintf("circuit open: %v", open)).WithDetails(details)
	}
}
