package api

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/searchcache/source"
)

// SearchResponse is the success envelope of every lookup.
type SearchResponse struct {
	Status       string          `json:"status"`
	ResultsCount int             `json:"results_count"`
	Data         []source.Record `json:"data"`
}

// newSearchResponse wraps records. A profile lookup always counts as one
// result.
func newSearchResponse(op source.Operation, records []source.Record) SearchResponse {
	if records == nil {
		records = []source.Record{}
	}
	count := len(records)
	if op == source.OpProfile {
		count = 1
	}
	return SearchResponse{Status: "success", ResultsCount: count, Data: records}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
