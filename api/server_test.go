package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/searchcache/cache"
	"github.com/jonwraymond/searchcache/health"
	"github.com/jonwraymond/searchcache/source"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// stubEngine counts fetches and answers with records or err.
type stubEngine struct {
	calls   atomic.Int32
	records []source.Record
	err     error
	last    atomic.Value
}

func (e *stubEngine) Fetch(_ context.Context, q source.Query) ([]source.Record, error) {
	e.calls.Add(1)
	e.last.Store(q)
	return e.records, e.err
}

type fixture struct {
	server *Server
	engine *stubEngine
	store  *cache.LRU[[]source.Record]
	clock  *cache.ManualClock
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	clock := cache.NewManualClock(epoch)
	store, err := cache.New[[]source.Record](cache.Config{MaxSize: 100, DefaultTTL: 60 * time.Second}, cache.WithClock(clock))
	if err != nil {
		t.Fatalf("cache.New error = %v", err)
	}
	engine := &stubEngine{records: []source.Record{{"id": "1"}, {"id": "2"}}}

	cfg := Config{
		Engine: engine,
		Cache:  cache.NewMiddleware[[]source.Record](store, nil),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	return &fixture{server: s, engine: engine, store: store, clock: clock}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("New(empty) error = %v", err)
	}
	if _, err := New(Config{Engine: &stubEngine{}}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("New(no cache) error = %v", err)
	}
}

func TestLookup_MissThenHit(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"queries":["eleições"],"country":"br"}`

	rec := f.do(t, http.MethodPost, "/v1/instagram/search", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}
	if rec.Header().Get("X-Cache-TTL-Remaining") != "" || rec.Header().Get("Cache-Control") != "" {
		t.Errorf("miss should not carry ttl headers: %v", rec.Header())
	}
	resp := decodeBody[SearchResponse](t, rec)
	if resp.Status != "success" || resp.ResultsCount != 2 || len(resp.Data) != 2 {
		t.Errorf("response = %+v", resp)
	}

	f.clock.Advance(15 * time.Second)
	rec = f.do(t, http.MethodPost, "/v1/instagram/search", `{"country":"br","queries":["eleições"]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	if got := rec.Header().Get("X-Cache-TTL-Remaining"); got != "45" {
		t.Errorf("X-Cache-TTL-Remaining = %q, want 45", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=45" {
		t.Errorf("Cache-Control = %q", got)
	}
	if resp := decodeBody[SearchResponse](t, rec); resp.ResultsCount != 2 {
		t.Errorf("hit response = %+v", resp)
	}
	if n := f.engine.calls.Load(); n != 1 {
		t.Errorf("engine calls = %d, want 1", n)
	}

	q := f.engine.last.Load().(source.Query)
	if q.Source != source.Instagram || q.Operation != source.OpSearch {
		t.Errorf("query = %+v", q)
	}
	if _, ok := q.Params.(*source.SearchRequest); !ok {
		t.Errorf("params = %T", q.Params)
	}
}

func TestLookup_KeysSeparateResources(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/v1/instagram/profile", `{"identifier":"nasa"}`, nil)
	f.do(t, http.MethodPost, "/v1/tiktok/profile", `{"identifier":"nasa"}`, nil)
	f.do(t, http.MethodPost, "/v1/instagram/comments", `{"identifier":"nasa"}`, nil)

	if n := f.engine.calls.Load(); n != 3 {
		t.Errorf("engine calls = %d, want 3", n)
	}
	if f.store.Len() != 3 {
		t.Errorf("store holds %d entries, want 3", f.store.Len())
	}
}

func TestLookup_ProfileCountsOne(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.records = []source.Record{{"username": "nasa"}}

	rec := f.do(t, http.MethodPost, "/v1/youtube/profile", `{"identifier":"nasa"}`, nil)
	resp := decodeBody[SearchResponse](t, rec)
	if resp.ResultsCount != 1 || len(resp.Data) != 1 {
		t.Errorf("response = %+v", resp)
	}

	f.engine.records = nil
	rec = f.do(t, http.MethodPost, "/v1/youtube/profile", `{"identifier":"other"}`, nil)
	resp = decodeBody[SearchResponse](t, rec)
	if resp.ResultsCount != 1 || resp.Data == nil {
		t.Errorf("empty profile response = %+v", resp)
	}
}

func TestLookup_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"missing queries", "/v1/instagram/search", `{}`, http.StatusUnprocessableEntity},
		{"bad interval", "/v1/instagram/search", `{"queries":["a"],"relative_interval":"7w"}`, http.StatusUnprocessableEntity},
		{"malformed", "/v1/instagram/search", `{"queries":`, http.StatusUnprocessableEntity},
		{"empty body", "/v1/facebook/profile", ``, http.StatusUnprocessableEntity},
		{"unknown source", "/v1/myspace/search", `{"queries":["a"]}`, http.StatusUnprocessableEntity},
		{"unknown operation", "/v1/instagram/followers", `{}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rec := f.do(t, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if detail := decodeBody[ErrorResponse](t, rec).Detail; detail == "" {
				t.Error("detail is empty")
			}
			if n := f.engine.calls.Load(); n != 0 {
				t.Errorf("engine calls = %d, want 0", n)
			}
			if rec.Header().Get("X-Cache") != "" {
				t.Error("rejected request should not carry X-Cache")
			}
		})
	}
}

func TestLookup_BodyTooLarge(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"queries":["` + strings.Repeat("a", maxBodyBytes) + `"]}`
	rec := f.do(t, http.MethodPost, "/v1/instagram/search", body, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestLookup_UpstreamFailureNotCached(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.err = &source.UpstreamError{Status: http.StatusBadGateway}

	rec := f.do(t, http.MethodPost, "/v1/facebook/search", `{"queries":["a"]}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got, want := decodeBody[ErrorResponse](t, rec).Detail, f.engine.err.Error(); got != want {
		t.Errorf("detail = %q, want %q", got, want)
	}
	if f.store.Len() != 0 {
		t.Error("failure was cached")
	}

	f.engine.err = nil
	rec = f.do(t, http.MethodPost, "/v1/facebook/search", `{"queries":["a"]}`, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("retry status = %d, X-Cache = %q", rec.Code, rec.Header().Get("X-Cache"))
	}
	if n := f.engine.calls.Load(); n != 2 {
		t.Errorf("engine calls = %d, want 2", n)
	}
}

func TestLookup_EngineValidationError(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.err = &source.ValidationError{Field: "step_days", Message: "bad"}

	rec := f.do(t, http.MethodPost, "/v1/facebook/search", `{"queries":["a"]}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	agg := health.NewAggregator()
	agg.Register(health.NewCheckerFunc("ok", func(context.Context) health.Result { return health.Healthy("fine") }))
	f := newFixture(t, func(c *Config) {
		c.Health = agg
		c.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "# metrics\n")
		})
	})

	rec := f.do(t, http.MethodGet, "/v1/health", "", nil)
	if rec.Code != http.StatusOK || decodeBody[map[string]string](t, rec)["status"] != "ok" {
		t.Errorf("/v1/health = %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/health" {
		t.Errorf("/ = %d, Location %q", rec.Code, rec.Header().Get("Location"))
	}

	for _, path := range []string{"/healthz", "/readyz", "/health", "/health/ok"} {
		if rec := f.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Errorf("%s = %d", path, rec.Code)
		}
	}

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics\n" {
		t.Errorf("/metrics = %d %q", rec.Code, rec.Body)
	}
}
