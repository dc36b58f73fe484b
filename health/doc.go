// Package health reports whether the search cache service can serve traffic.
//
// A Checker inspects one component and returns a Result with a Status of
// Healthy, Degraded or Unhealthy. The service registers three:
//
//   - MemoryChecker watches heap usage against a configured budget.
//   - CacheChecker reads store statistics (size, capacity, hit ratio).
//   - UpstreamChecker reads the circuit state of each data source.
//
// An Aggregator runs all registered checkers concurrently and folds their
// results into one overall status; the worst status wins.
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{MaxAlloc: 512 << 20}))
//	agg.Register(health.NewCacheChecker(store))
//	agg.Register(health.NewUpstreamChecker(executors))
//
//	health.RegisterHandlers(mux, agg)
//
// RegisterHandlers mounts /healthz (liveness), /readyz (readiness) and
// /health (per-check details).
package health
