// Package source describes the upstream data sources the cache fronts and
// the engines that fetch from them.
//
// A DataSource names a platform (instagram, facebook, twitter, tiktok,
// youtube) and an Operation names the lookup run against it (search,
// profile, comments, timeseries). Request bodies decode into SearchRequest,
// ProfileInput, CommentsInput and TimeseriesInput, each of which fills its
// defaults while decoding and checks itself with Validate.
//
// An Engine turns a Query into records. HTTPEngine talks to the scraping
// gateway over HTTP, ResilientEngine guards each data source with its own
// resilience executor, and Paginator splits search windows into date pages
// so that every page pays for its own token:
//
//	gw, _ := source.NewHTTPEngine(source.HTTPConfig{BaseURL: url, APIKey: key})
//	reg := source.NewRegistry(source.GuardConfig{Rate: 2, Burst: 2})
//	engine := source.NewPaginator(source.NewResilientEngine(gw, reg), 2, nil)
//
//	records, err := engine.Fetch(ctx, source.Query{
//		Source:    source.Instagram,
//		Operation: source.OpSearch,
//		Params:    req,
//	})
package source
