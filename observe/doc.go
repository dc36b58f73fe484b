// Package observe provides observability primitives for the search cache.
//
// It wires OpenTelemetry tracing and metrics plus a JSON structured logger.
// Spans and upstream metrics wrap the expensive fetch behind a cache miss;
// lookup metrics record every hit and miss. Cache occupancy is exported
// through observable gauges read from the store's Stats.
package observe
