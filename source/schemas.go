package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Request limits and defaults.
const (
	MaxResultsLimit   = 10000
	DefaultMaxResults = 1000
	DefaultStepDays   = 1
	DefaultCountry    = "br"
	DefaultLang       = "pt"
	DefaultAmount     = 100
	MaxAmount         = 10000

	SortTop    = "Top"
	SortLatest = "Latest"
)

// Params is a decoded request body.
type Params interface {
	Validate() error
}

// SearchRequest is the body of a search lookup.
//
// RelativeInterval defaults to "7d" and, when set, overrides Since and
// Until. Send it as null to search an explicit window. Country and Lang
// apply to web searches only; Sort applies to direct searches only.
type SearchRequest struct {
	Queries          []string   `json:"queries"`
	Since            *Timestamp `json:"since"`
	Until            *Timestamp `json:"until"`
	StepDays         int        `json:"step_days"`
	RelativeInterval *string    `json:"relative_interval"`
	MaxResults       int        `json:"max_results"`
	Country          string     `json:"country"`
	Lang             string     `json:"lang"`
	Sort             string     `json:"sort"`
}

// NewSearchRequest returns a request for queries with every default set.
func NewSearchRequest(queries ...string) *SearchRequest {
	rel := DefaultRelativeInterval
	return &SearchRequest{
		Queries:          queries,
		StepDays:         DefaultStepDays,
		RelativeInterval: &rel,
		MaxResults:       DefaultMaxResults,
		Country:          DefaultCountry,
		Lang:             DefaultLang,
		Sort:             SortTop,
	}
}

// UnmarshalJSON fills defaults for every field the body leaves out.
func (r *SearchRequest) UnmarshalJSON(b []byte) error {
	type plain SearchRequest
	p := plain(*NewSearchRequest())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = SearchRequest(p)
	return nil
}

// Validate checks field constraints.
func (r *SearchRequest) Validate() error {
	if len(r.Queries) == 0 {
		return invalid("queries", "at least one query is required")
	}
	for i, q := range r.Queries {
		if strings.TrimSpace(q) == "" {
			return invalid(fmt.Sprintf("queries[%d]", i), "query must not be empty")
		}
	}
	if r.StepDays <= 0 {
		return invalid("step_days", "must be greater than 0, got %d", r.StepDays)
	}
	if err := validateRelative(r.RelativeInterval); err != nil {
		return err
	}
	if err := validateBounds(r.Since, r.Until); err != nil {
		return err
	}
	if r.MaxResults <= 0 || r.MaxResults > MaxResultsLimit {
		return invalid("max_results", "must be between 1 and %d, got %d", MaxResultsLimit, r.MaxResults)
	}
	if r.Sort != SortTop && r.Sort != SortLatest {
		return invalid("sort", "must be %q or %q, got %q", SortTop, SortLatest, r.Sort)
	}
	return nil
}

// Window resolves the search time range at now.
func (r *SearchRequest) Window(now time.Time) (Window, error) {
	return resolveWindow(r.RelativeInterval, r.Since, r.Until, now)
}

// ProfileInput is the body of a profile lookup.
type ProfileInput struct {
	// Identifier is a username or profile URL.
	Identifier string `json:"identifier"`
}

// Validate checks field constraints.
func (p *ProfileInput) Validate() error {
	return validateIdentifier(p.Identifier)
}

// CommentsInput is the body of a comments lookup.
type CommentsInput struct {
	// Identifier is a post ID or URL.
	Identifier string `json:"identifier"`
	Amount     int    `json:"amount"`
}

// UnmarshalJSON fills the default amount when the body leaves it out.
func (c *CommentsInput) UnmarshalJSON(b []byte) error {
	type plain CommentsInput
	p := plain{Amount: DefaultAmount}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = CommentsInput(p)
	return nil
}

// Validate checks field constraints.
func (c *CommentsInput) Validate() error {
	if err := validateIdentifier(c.Identifier); err != nil {
		return err
	}
	if c.Amount <= 0 || c.Amount > MaxAmount {
		return invalid("amount", "must be between 1 and %d, got %d", MaxAmount, c.Amount)
	}
	return nil
}

// TimeseriesInput is the body of a timeseries lookup. The window follows
// the same rules as SearchRequest.
type TimeseriesInput struct {
	Identifier       string     `json:"identifier"`
	RelativeInterval *string    `json:"relative_interval"`
	Since            *Timestamp `json:"since"`
	Until            *Timestamp `json:"until"`
}

// UnmarshalJSON fills the default relative interval when the body leaves
// it out.
func (t *TimeseriesInput) UnmarshalJSON(b []byte) error {
	type plain TimeseriesInput
	rel := DefaultRelativeInterval
	p := plain{RelativeInterval: &rel}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = TimeseriesInput(p)
	return nil
}

// Validate checks field constraints.
func (t *TimeseriesInput) Validate() error {
	if err := validateIdentifier(t.Identifier); err != nil {
		return err
	}
	if err := validateRelative(t.RelativeInterval); err != nil {
		return err
	}
	return validateBounds(t.Since, t.Until)
}

// Window resolves the timeseries time range at now.
func (t *TimeseriesInput) Window(now time.Time) (Window, error) {
	return resolveWindow(t.RelativeInterval, t.Since, t.Until, now)
}

// NewParams returns an empty body for op, ready to decode into.
func NewParams(op Operation) (Params, error) {
	switch op {
	case OpSearch:
		return NewSearchRequest(), nil
	case OpProfile:
		return &ProfileInput{}, nil
	case OpComments:
		return &CommentsInput{Amount: DefaultAmount}, nil
	case OpTimeseries:
		rel := DefaultRelativeInterval
		return &TimeseriesInput{RelativeInterval: &rel}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

// DecodeParams reads and validates the JSON body of an op request. Decode
// and validation failures both match ErrInvalidRequest.
func DecodeParams(op Operation, r io.Reader) (Params, error) {
	p, err := NewParams(op)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("source: read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, invalid("body", "request body is required")
	}
	if err := json.Unmarshal(body, p); err != nil {
		return nil, decodeError(err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return invalid(typeErr.Field, "expected %s", typeErr.Type)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return invalid("body", "malformed JSON at offset %d", syntaxErr.Offset)
	}
	return invalid("body", "%v", err)
}

func validateIdentifier(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("identifier", "identifier is required")
	}
	return nil
}

func validateRelative(rel *string) error {
	if rel == nil || *rel == "" {
		return nil
	}
	if _, err := ParseRelativeInterval(*rel); err != nil {
		return invalid("relative_interval", "must match <number><h|d|m|M|y|Y>, got %q", *rel)
	}
	return nil
}

func validateBounds(since, until *Timestamp) error {
	if since != nil && until != nil && since.After(until.Time) {
		return invalid("since", "must not be after until")
	}
	return nil
}
