// Package endpoint decodes the cmc:// request descriptors passed in by the mobile client.
//
//	cmc://historical/<symbol>?timeframe=<tf>[&interval=<iv>]&api_key=<key>
//	cmc://latest[?limit=<n>]&api_key=<key>
package endpoint

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Alias1177/coinbridge/internal/timeframe"
)

const Scheme = "cmc"

// Resource identifies what an endpoint asks for
type Resource string

const (
	ResourceHistorical Resource = "historical"
	ResourceLatest     Resource = "latest"
)

const (
	DefaultLatestLimit = 100
	MaxLatestLimit     = 5000
)

// Request is a decoded endpoint string
type Request struct {
	Resource  Resource
	Symbol    string
	Timeframe timeframe.Timeframe
	Interval  string
	APIKey    string
	Limit     int
}

// Parse decodes raw into a Request. Unknown query parameters are ignored.
func Parse(raw string) (Request, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Request{}, &ParseError{Kind: KindMissingField, Field: "endpoint"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Request{}, &ParseError{Kind: KindMalformed, Detail: "not a valid URI"}
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return Request{}, &ParseError{Kind: KindMalformed, Detail: "scheme must be " + Scheme + "://"}
	}

	q := u.Query()
	req := Request{
		Resource: Resource(strings.ToLower(u.Host)),
		APIKey:   strings.TrimSpace(rawParam(u.RawQuery, "api_key")),
	}

	switch req.Resource {
	case ResourceHistorical:
		err = parseHistorical(&req, u.Path, q)
	case ResourceLatest:
		err = parseLatest(&req, q)
	case "":
		err = &ParseError{Kind: KindMalformed, Detail: "resource is missing"}
	default:
		err = &ParseError{Kind: KindUnsupportedResource, Token: string(req.Resource)}
	}
	if err != nil {
		return Request{}, err
	}

	if req.APIKey == "" {
		return Request{}, &ParseError{Kind: KindMissingField, Field: "api_key"}
	}
	return req, nil
}

// rawParam reads key from a raw query without form decoding, so a literal '+'
// in an API key survives. Percent escapes are still decoded.
func rawParam(rawQuery, key string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k != key {
			continue
		}
		if dec, err := url.PathUnescape(v); err == nil {
			return dec
		}
		return v
	}
	return ""
}

func parseHistorical(req *Request, path string, q url.Values) error {
	symbol := strings.Trim(path, "/")
	if symbol == "" {
		return &ParseError{Kind: KindMissingField, Field: "symbol"}
	}
	if strings.Contains(symbol, "/") {
		return &ParseError{Kind: KindMalformed, Detail: "path must be a single symbol"}
	}
	req.Symbol = strings.ToUpper(symbol)

	token := strings.TrimSpace(q.Get("timeframe"))
	if token == "" {
		return &ParseError{Kind: KindMissingField, Field: "timeframe"}
	}
	tf, ok := timeframe.Parse(token)
	if !ok {
		return &ParseError{Kind: KindUnknownTimeframe, Token: token}
	}
	req.Timeframe = tf
	req.Interval = strings.TrimSpace(q.Get("interval"))
	return nil
}

func parseLatest(req *Request, q url.Values) error {
	req.Limit = DefaultLatestLimit
	raw := strings.TrimSpace(q.Get("limit"))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxLatestLimit {
		return &ParseError{Kind: KindInvalidField, Field: "limit", Token: raw}
	}
	req.Limit = n
	return nil
}

// Historical builds a historical endpoint string. An empty interval is omitted.
func Historical(symbol, tf, interval, apiKey string) string {
	q := url.Values{}
	q.Set("timeframe", tf)
	if interval != "" {
		q.Set("interval", interval)
	}
	q.Set("api_key", apiKey)
	u := url.URL{Scheme: Scheme, Host: string(ResourceHistorical), Path: "/" + strings.ToLower(symbol), RawQuery: q.Encode()}
	return u.String()
}

// Latest builds a latest-listings endpoint string. A non-positive limit is omitted.
func Latest(limit int, apiKey string) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("api_key", apiKey)
	u := url.URL{Scheme: Scheme, Host: string(ResourceLatest), RawQuery: q.Encode()}
	return u.String()
}
