package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed reply is kept.
const maxErrorBody = 4 << 10

// HTTPConfig configures an HTTPEngine.
type HTTPConfig struct {
	// BaseURL is the gateway root; lookups are posted to
	// <BaseURL>/<source>/<operation>. Required.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Client performs requests. Default: a client without its own timeout;
	// attempts are bounded by the caller's context.
	Client *http.Client

	// UserAgent is sent with every request. Default: "searchcache".
	UserAgent string

	// Now is the time source for window resolution. Default: time.Now
	Now func() time.Time
}

// HTTPEngine fetches records from the scraping gateway.
type HTTPEngine struct {
	base   *url.URL
	config HTTPConfig
}

// NewHTTPEngine validates cfg and creates an engine.
func NewHTTPEngine(cfg HTTPConfig) (*HTTPEngine, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("source: base url %q must be http or https", cfg.BaseURL)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "searchcache"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HTTPEngine{base: base, config: cfg}, nil
}

// gatewayResponse is the reply envelope. Data is a list of records or, for
// profile lookups, a single record.
type gatewayResponse struct {
	Data json.RawMessage `json:"data"`
}

// Fetch posts the query to the gateway and decodes its records.
func (e *HTTPEngine) Fetch(ctx context.Context, q Query) ([]Record, error) {
	payload, err := e.payload(q)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("source: encode %s %s: %w", q.Source, q.Operation, err)
	}

	endpoint := e.base.JoinPath(string(q.Source), string(q.Operation))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", e.config.UserAgent)
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.config.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: %s %s: %w", q.Source, q.Operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{
			Status:     resp.StatusCode,
			Body:       string(msg),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), e.config.Now()),
		}
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("source: decode %s %s reply: %w", q.Source, q.Operation, err)
	}
	return decodeRecords(out.Data)
}

// payload resolves time windows so the gateway sees absolute bounds.
func (e *HTTPEngine) payload(q Query) (any, error) {
	switch p := q.Params.(type) {
	case *SearchRequest:
		w, err := p.Window(e.config.Now().UTC())
		if err != nil {
			return nil, invalid("relative_interval", "%v", err)
		}
		return p.Page(q.Source, w), nil
	case *TimeseriesInput:
		w, err := p.Window(e.config.Now().UTC())
		if err != nil {
			return nil, invalid("relative_interval", "%v", err)
		}
		return TimeseriesWindow{
			Identifier: p.Identifier,
			Since:      Timestamp{Time: w.Since},
			Until:      Timestamp{Time: w.Until},
		}, nil
	default:
		return q.Params, nil
	}
}

func decodeRecords(raw json.RawMessage) ([]Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Record{}, nil
	}
	if raw[0] == '{' {
		var one Record
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("source: decode record: %w", err)
		}
		return []Record{one}, nil
	}
	var many []Record
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("source: decode records: %w", err)
	}
	if many == nil {
		many = []Record{}
	}
	return many, nil
}
