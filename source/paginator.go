package source

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Paginator splits web searches into date pages of StepDays days and
// fetches them concurrently. Direct searches and every other operation
// pass through unchanged.
type Paginator struct {
	next        Engine
	concurrency int
	now         func() time.Time
}

// NewPaginator wraps next. At most concurrency pages are in flight per
// search; values below one mean one. A nil now uses time.Now.
func NewPaginator(next Engine, concurrency int, now func() time.Time) *Paginator {
	if concurrency < 1 {
		concurrency = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Paginator{next: next, concurrency: concurrency, now: now}
}

// Fetch runs q. Page results are joined in date order and capped at the
// request's MaxResults. The first failing page cancels the rest and its
// error is returned.
func (p *Paginator) Fetch(ctx context.Context, q Query) ([]Record, error) {
	req, ok := q.Params.(*SearchRequest)
	if !ok || q.Operation != OpSearch || q.Source.Direct() {
		return p.next.Fetch(ctx, q)
	}

	w, err := req.Window(p.now().UTC())
	if err != nil {
		return nil, invalid("relative_interval", "%v", err)
	}
	pages, err := DateIntervals(w.Since, w.Until, req.StepDays)
	if err != nil {
		return nil, invalid("step_days", "%v", err)
	}

	results := make([][]Record, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, page := range pages {
		g.Go(func() error {
			records, err := p.next.Fetch(gctx, Query{
				Source:    q.Source,
				Operation: OpSearch,
				Params:    req.Page(q.Source, Window{Since: page.Start, Until: page.End}),
			})
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Record, 0)
	for _, records := range results {
		for _, r := range records {
			if len(out) == req.MaxResults {
				return out, nil
			}
			out = append(out, r)
		}
	}
	return out, nil
}
