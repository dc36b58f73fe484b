package source

import (
	"fmt"
	"strings"
)

// DataSource is a platform the service can query.
type DataSource string

// Served data sources.
const (
	Instagram DataSource = "instagram"
	Facebook  DataSource = "facebook"
	Twitter   DataSource = "twitter"
	TikTok    DataSource = "tiktok"
	YouTube   DataSource = "youtube"
)

// DataSources lists every served data source in a stable order.
func DataSources() []DataSource {
	return []DataSource{Instagram, Facebook, Twitter, TikTok, YouTube}
}

// ParseDataSource maps a path segment to a DataSource. Matching is exact,
// as it is for path routing.
func ParseDataSource(s string) (DataSource, error) {
	for _, ds := range DataSources() {
		if string(ds) == s {
			return ds, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// String implements fmt.Stringer.
func (d DataSource) String() string {
	return string(d)
}

// Site is the domain that web searches for d are restricted to. Twitter
// is searched directly and has no site.
func (d DataSource) Site() string {
	switch d {
	case Instagram:
		return "instagram.com"
	case Facebook:
		return "facebook.com"
	case TikTok:
		return "tiktok.com"
	case YouTube:
		return "youtube.com"
	default:
		return ""
	}
}

// QuerySuffix narrows web searches to content pages of d, or is empty.
func (d DataSource) QuerySuffix() string {
	switch d {
	case Instagram:
		return "inurl:instagram.com/p OR inurl:instagram.com/reel"
	case Facebook:
		return strings.Join([]string{
			"inurl:photo", "inurl:photos", "inurl:video", "inurl:post", "inurl:watch",
		}, " OR ")
	case TikTok:
		return "inurl:/video/"
	default:
		return ""
	}
}

// Direct reports whether d is searched through its own API rather than
// through a site-restricted web search.
func (d DataSource) Direct() bool {
	return d == Twitter
}

// Operation is a lookup kind.
type Operation string

// Served operations.
const (
	OpSearch     Operation = "search"
	OpProfile    Operation = "profile"
	OpComments   Operation = "comments"
	OpTimeseries Operation = "timeseries"
)

// Operations lists every served operation in a stable order.
func Operations() []Operation {
	return []Operation{OpSearch, OpProfile, OpComments, OpTimeseries}
}

// ParseOperation maps a path segment to an Operation.
func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations() {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// String implements fmt.Stringer.
func (o Operation) String() string {
	return string(o)
}
