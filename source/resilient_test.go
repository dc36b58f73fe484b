package source

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/searchcache/resilience"
)

func fastGuards() GuardConfig {
	return GuardConfig{
		Rate:       1000,
		Burst:      1000,
		Attempts:   3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	}
}

// scripted returns the queued errors in order, then succeeds.
type scripted struct {
	calls atomic.Int32
	mu    sync.Mutex
	errs  []error
}

func (s *scripted) Fetch(ctx context.Context, q Query) ([]Record, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return []Record{{"source": string(q.Source)}}, nil
}

var profileQuery = Query{Source: Instagram, Operation: OpProfile, Params: &ProfileInput{Identifier: "x"}}

func TestResilientEngine_RetriesTransientFailures(t *testing.T) {
	next := &scripted{errs: []error{
		&UpstreamError{Status: http.StatusBadGateway},
		&UpstreamError{Status: http.StatusTooManyRequests, retryAfter: time.Millisecond},
	}}
	e := NewResilientEngine(next, NewRegistry(fastGuards()))

	records, err := e.Fetch(context.Background(), profileQuery)
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %v", records)
	}
	if n := next.calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestResilientEngine_PermanentFailureNotRetried(t *testing.T) {
	next := &scripted{errs: []error{&UpstreamError{Status: http.StatusBadRequest}}}
	e := NewResilientEngine(next, NewRegistry(fastGuards()))

	_, err := e.Fetch(context.Background(), profileQuery)
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusBadRequest {
		t.Fatalf("error = %v, want the 400 reply", err)
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestResilientEngine_ValidationNotRetried(t *testing.T) {
	next := &scripted{errs: []error{invalid("relative_interval", "bad")}}
	e := NewResilientEngine(next, NewRegistry(fastGuards()))

	if _, err := e.Fetch(context.Background(), profileQuery); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestResilientEngine_UnknownSource(t *testing.T) {
	e := NewResilientEngine(&scripted{}, NewRegistry(fastGuards()))
	if _, err := e.Fetch(context.Background(), Query{Source: "myspace", Operation: OpSearch}); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("error = %v, want ErrUnknownSource", err)
	}
}

func TestResilientEngine_CircuitPerSource(t *testing.T) {
	var transitions []string
	cfg := fastGuards()
	cfg.Attempts = 1
	cfg.MaxFailures = 2
	cfg.ResetTimeout = time.Hour
	cfg.OnStateChange = func(ds DataSource, from, to resilience.State) {
		transitions = append(transitions, string(ds)+":"+to.String())
	}
	reg := NewRegistry(cfg)

	failing := &UpstreamError{Status: http.StatusInternalServerError}
	next := &scripted{errs: []error{failing, failing}}
	e := NewResilientEngine(next, reg)

	for i := 0; i < 2; i++ {
		if _, err := e.Fetch(context.Background(), profileQuery); err == nil {
			t.Fatalf("call %d expected error", i)
		}
	}
	if got := reg.Executor(Instagram).CircuitState(); got != resilience.StateOpen {
		t.Fatalf("instagram circuit = %v, want open", got)
	}

	if _, err := e.Fetch(context.Background(), profileQuery); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if n := next.calls.Load(); n != 2 {
		t.Errorf("calls = %d, an open circuit should not reach the engine", n)
	}

	other := Query{Source: YouTube, Operation: OpProfile, Params: &ProfileInput{Identifier: "x"}}
	if _, err := e.Fetch(context.Background(), other); err != nil {
		t.Errorf("youtube fetch error = %v, circuits should be independent", err)
	}

	if len(transitions) != 1 || transitions[0] != "instagram:open" {
		t.Errorf("transitions = %v", transitions)
	}

	reporters := reg.Reporters()
	if len(reporters) != len(DataSources()) {
		t.Fatalf("Reporters() has %d entries", len(reporters))
	}
	if reporters["instagram"].CircuitState() != resilience.StateOpen {
		t.Error("instagram reporter should be open")
	}
	if reporters["youtube"].CircuitState() != resilience.StateClosed {
		t.Error("youtube reporter should be closed")
	}

	snap := reg.Snapshot()
	if snap["instagram"].Circuit.State != resilience.StateOpen {
		t.Errorf("snapshot = %+v", snap["instagram"])
	}
}

func TestRegistry_Bulkhead(t *testing.T) {
	cfg := fastGuards()
	cfg.MaxConcurrent = 1
	reg := NewRegistry(cfg)

	snap := reg.Snapshot()[string(Facebook)]
	if snap.Bulkhead == nil {
		t.Fatal("bulkhead not configured")
	}

	if NewRegistry(fastGuards()).Snapshot()[string(Facebook)].Bulkhead != nil {
		t.Error("bulkhead should be off without MaxConcurrent")
	}
}
