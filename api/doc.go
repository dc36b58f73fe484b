// Package api exposes the cached lookups over HTTP.
//
// Lookups are served at POST /v1/{datasource}/{operation}, where operation
// is one of search, profile, comments or timeseries. Every lookup goes
// through the response cache and reports its outcome in the X-Cache,
// X-Cache-TTL-Remaining and Cache-Control headers. Successful replies use
// one envelope:
//
//	{"status": "success", "results_count": 2, "data": [...]}
//
// Failures are {"detail": "..."} bodies: 422 for an invalid request and 500
// when the upstream lookup fails.
package api
