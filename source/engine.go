package source

import "context"

// Record is one item returned by an upstream lookup.
type Record = map[string]any

// Query is one lookup against a data source. Params holds the decoded
// request body, or a SearchPage once a search has been split.
type Query struct {
	Source    DataSource
	Operation Operation
	Params    any
}

// Engine fetches records for a query.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Fetch must honor cancellation and deadlines.
// - Errors: upstream replies are reported as *UpstreamError.
type Engine interface {
	Fetch(ctx context.Context, q Query) ([]Record, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, q Query) ([]Record, error)

// Fetch calls f.
func (f EngineFunc) Fetch(ctx context.Context, q Query) ([]Record, error) {
	return f(ctx, q)
}

// SearchPage is one resolved page of a search as sent to the gateway.
type SearchPage struct {
	Queries     []string  `json:"queries"`
	Site        string    `json:"site,omitempty"`
	QuerySuffix string    `json:"query_suffix,omitempty"`
	Since       Timestamp `json:"since"`
	Until       Timestamp `json:"until"`
	MaxResults  int       `json:"max_results"`
	Country     string    `json:"country,omitempty"`
	Lang        string    `json:"lang,omitempty"`
	Sort        string    `json:"sort,omitempty"`
}

// Page builds the gateway page of r for ds over w. Direct sources carry
// the sort mode; web sources carry site, suffix, country and language.
func (r *SearchRequest) Page(ds DataSource, w Window) *SearchPage {
	p := &SearchPage{
		Queries:    r.Queries,
		Since:      Timestamp{Time: w.Since},
		Until:      Timestamp{Time: w.Until},
		MaxResults: r.MaxResults,
	}
	if ds.Direct() {
		p.Sort = r.Sort
		return p
	}
	p.Site = ds.Site()
	p.QuerySuffix = ds.QuerySuffix()
	p.Country = r.Country
	p.Lang = r.Lang
	return p
}

// TimeseriesWindow is a resolved timeseries lookup as sent to the gateway.
type TimeseriesWindow struct {
	Identifier string    `json:"identifier"`
	Since      Timestamp `json:"since"`
	Until      Timestamp `json:"until"`
}
