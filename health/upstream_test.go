package health

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/searchcache/resilience"
)

type stateOf resilience.State

func (s stateOf) CircuitState() resilience.State { return resilience.State(s) }

func TestUpstreamChecker(t *testing.T) {
	tests := []struct {
		name      string
		upstreams map[string]CircuitReporter
		want      Status
	}{
		{"none", nil, StatusHealthy},
		{
			"all closed",
			map[string]CircuitReporter{"instagram": stateOf(resilience.StateClosed), "tiktok": stateOf(resilience.StateClosed)},
			StatusHealthy,
		},
		{
			"half-open is not open",
			map[string]CircuitReporter{"instagram": stateOf(resilience.StateHalfOpen)},
			StatusHealthy,
		},
		{
			"one open",
			map[string]CircuitReporter{"instagram": stateOf(resilience.StateOpen), "tiktok": stateOf(resilience.StateClosed)},
			StatusDegraded,
		},
		{
			"all open",
			map[string]CircuitReporter{"instagram": stateOf(resilience.StateOpen), "tiktok": stateOf(resilience.StateOpen)},
			StatusUnhealthy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewUpstreamChecker(tt.upstreams).Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tt.want, r.Message)
			}
			for name, up := range tt.upstreams {
				if r.Details[name] != up.CircuitState().String() {
					t.Errorf("Details[%s] = %v", name, r.Details[name])
				}
			}
		})
	}
}

func TestUpstreamChecker_Executor(t *testing.T) {
	exec := resilience.NewExecutor(resilience.WithCircuitBreaker(
		resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1}),
	))
	_ = exec.Execute(context.Background(), func(context.Context) error {
		return errors.New("gateway down")
	})

	c := NewUpstreamChecker(map[string]CircuitReporter{"youtube": exec})
	if c.Name() != "upstream" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", r.Status)
	}
}
