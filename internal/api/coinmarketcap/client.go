package coinmarketcap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpClient "github.com/Alias1177/coinbridge/internal/platform/http"
	"github.com/Alias1177/coinbridge/models"
)

const (
	DefaultBaseURL = "https://pro-api.coinmarketcap.com"
	DefaultConvert = "USD"

	// APIKeyHeader carries the caller's key on every request.
	APIKeyHeader = "X-CMC_PRO_API_KEY"

	historicalPath = "/v2/cryptocurrency/quotes/historical"
	latestPath     = "/v1/cryptocurrency/listings/latest"

	// cmcTimeLayout is the timestamp format CMC accepts for time_start/time_end.
	cmcTimeLayout = "2006-01-02T15:04:05.000Z"

	maxCount = 10000
)

// Client is the CoinMarketCap API client
type Client struct {
	baseURL    string
	convert    string
	httpClient *httpClient.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new CoinMarketCap client
type ClientOptions struct {
	BaseURL         string
	Convert         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
	// InitialRetryInterval overrides the first backoff delay.
	InitialRetryInterval time.Duration
	// Now is the clock used for time_end. Defaults to time.Now.
	Now func() time.Time
}

var _ models.MarketDataClient = (*Client)(nil)

// NewClient creates a new CoinMarketCap API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
		InitialInterval: options.InitialRetryInterval,
	}
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.Convert == "" {
		options.Convert = DefaultConvert
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		convert:    strings.ToUpper(options.Convert),
		httpClient: httpClient.NewClient(httpOpts),
		now:        options.Now,
		logger:     log.With().Str("component", "coinmarketcap_client").Logger(),
	}
}

type status struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type quote struct {
	Price            decimal.Decimal `json:"price"`
	Volume24h        decimal.Decimal `json:"volume_24h"`
	MarketCap        decimal.Decimal `json:"market_cap"`
	PercentChange1h  decimal.Decimal `json:"percent_change_1h"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	PercentChange7d  decimal.Decimal `json:"percent_change_7d"`
	LastUpdated      time.Time       `json:"last_updated"`
}

type historicalQuote struct {
	Timestamp time.Time        `json:"timestamp"`
	Quote     map[string]quote `json:"quote"`
}

type historicalAsset struct {
	ID     int64             `json:"id"`
	Symbol string            `json:"symbol"`
	Quotes []historicalQuote `json:"quotes"`
}

type historicalResponse struct {
	Status status                     `json:"status"`
	Data   map[string]json.RawMessage `json:"data"`
}

type listing struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Symbol      string           `json:"symbol"`
	LastUpdated time.Time        `json:"last_updated"`
	Quote       map[string]quote `json:"quote"`
}

type latestResponse struct {
	Status status    `json:"status"`
	Data   []listing `json:"data"`
}

// GetHistorical fetches price/volume samples for symbol over the last lookbackDays.
// Points are returned oldest first.
func (c *Client) GetHistorical(ctx context.Context, symbol string, lookbackDays int, interval, apiKey string) ([]models.HistoricalPoint, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	end := c.now().UTC()
	start := models.RangeStart(end, lookbackDays)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("time_start", start.Format(cmcTimeLayout))
	q.Set("time_end", end.Format(cmcTimeLayout))
	q.Set("interval", interval)
	q.Set("convert", c.convert)
	if step, ok := intervalStep(interval); ok {
		q.Set("count", strconv.Itoa(countFor(step, lookbackDays)))
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("lookback_days", lookbackDays).
		Str("interval", interval).
		Msg("Fetching historical quotes")

	body, err := c.get(ctx, historicalPath, q, apiKey)
	if err != nil {
		return nil, err
	}

	var resp historicalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error().Err(err).Int("bytes", len(body)).Msg("Error parsing historical quotes")
		return nil, &FetchError{Kind: KindMalformed, Message: "CoinMarketCap returned an unreadable historical payload", Cause: err}
	}
	if resp.Status.ErrorCode != 0 {
		return nil, fromStatusCode(resp.Status.ErrorCode, truncate(resp.Status.ErrorMessage))
	}

	asset, err := pickAsset(resp.Data, symbol)
	if err != nil {
		c.logger.Error().Err(err).Str("symbol", symbol).Msg("Error decoding historical asset")
		return nil, &FetchError{Kind: KindMalformed, Message: "CoinMarketCap returned an unreadable historical payload", Cause: err}
	}

	points := make([]models.HistoricalPoint, 0, len(asset.Quotes))
	for _, hq := range asset.Quotes {
		qv, ok := hq.Quote[c.convert]
		if !ok {
			continue
		}
		points = append(points, models.HistoricalPoint{
			Timestamp: hq.Timestamp.UTC(),
			Price:     qv.Price,
			Volume:    qv.Volume24h,
		})
	}

	if len(points) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No historical quotes in response")
		return nil, &FetchError{Kind: KindNoData, Message: fmt.Sprintf("no historical data for %s in the requested range", symbol)}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	c.logger.Debug().Int("count", len(points)).Msg("Fetched historical quotes")
	return points, nil
}

// GetLatest fetches the current top listings ranked by market cap.
func (c *Client) GetLatest(ctx context.Context, limit int, apiKey string) ([]models.Listing, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("convert", c.convert)

	c.logger.Debug().Int("limit", limit).Msg("Fetching latest listings")

	body, err := c.get(ctx, latestPath, q, apiKey)
	if err != nil {
		return nil, err
	}

	var resp latestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error().Err(err).Int("bytes", len(body)).Msg("Error parsing latest listings")
		return nil, &FetchError{Kind: KindMalformed, Message: "CoinMarketCap returned an unreadable listings payload", Cause: err}
	}
	if resp.Status.ErrorCode != 0 {
		return nil, fromStatusCode(resp.Status.ErrorCode, truncate(resp.Status.ErrorMessage))
	}
	if len(resp.Data) == 0 {
		return nil, &FetchError{Kind: KindNoData, Message: "no listings returned"}
	}

	listings := make([]models.Listing, 0, len(resp.Data))
	for _, l := range resp.Data {
		qv := l.Quote[c.convert]
		updated := qv.LastUpdated
		if updated.IsZero() {
			updated = l.LastUpdated
		}
		listings = append(listings, models.Listing{
			ID:               l.ID,
			Name:             l.Name,
			Symbol:           l.Symbol,
			Price:            qv.Price,
			Volume24h:        qv.Volume24h,
			MarketCap:        qv.MarketCap,
			PercentChange1h:  qv.PercentChange1h,
			PercentChange24h: qv.PercentChange24h,
			PercentChange7d:  qv.PercentChange7d,
			LastUpdated:      updated.UTC(),
		})
	}

	c.logger.Debug().Int("count", len(listings)).Msg("Fetched latest listings")
	return listings, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, apiKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindUnavailable, Message: "could not build CoinMarketCap request", Cause: err}
	}
	req.Header.Set(APIKeyHeader, apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		fe := classify(err)
		c.logger.Warn().Err(err).Str("kind", fe.Kind.String()).Str("path", path).Msg("CoinMarketCap request failed")
		return nil, fe
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fe := classify(err)
		c.logger.Warn().Err(err).Str("path", path).Msg("Reading CoinMarketCap response failed")
		return nil, fe
	}
	return body, nil
}

// pickAsset finds the symbol's entry under data. CMC returns either one object or
// an array of objects when several assets share a ticker; the first with quotes wins.
func pickAsset(data map[string]json.RawMessage, symbol string) (historicalAsset, error) {
	raw, ok := data[symbol]
	if !ok {
		for k, v := range data {
			if strings.EqualFold(k, symbol) {
				raw, ok = v, true
				break
			}
		}
	}
	if !ok {
		return historicalAsset{}, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return historicalAsset{}, nil
	}
	if trimmed[0] == '[' {
		var assets []historicalAsset
		if err := json.Unmarshal(trimmed, &assets); err != nil {
			return historicalAsset{}, err
		}
		for _, a := range assets {
			if len(a.Quotes) > 0 {
				return a, nil
			}
		}
		return historicalAsset{}, nil
	}

	var asset historicalAsset
	if err := json.Unmarshal(trimmed, &asset); err != nil {
		return historicalAsset{}, err
	}
	return asset, nil
}

func intervalStep(interval string) (time.Duration, bool) {
	switch interval {
	case "hourly":
		return time.Hour, true
	case "daily":
		return 24 * time.Hour, true
	case "weekly":
		return 7 * 24 * time.Hour, true
	case "monthly":
		return 30 * 24 * time.Hour, true
	case "yearly":
		return 365 * 24 * time.Hour, true
	}
	if len(interval) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	switch interval[len(interval)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	}
	return 0, false
}

// countFor asks for one sample more than the window holds so both edges are kept.
func countFor(step time.Duration, days int) int {
	n := models.ExpectedPoints(step, days) + 1
	if n > maxCount {
		n = maxCount
	}
	return n
}

func truncate(s string) string {
	if len(s) > maxProviderMessage {
		return s[:maxProviderMessage]
	}
	return s
}
