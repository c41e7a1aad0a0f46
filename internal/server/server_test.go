package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/coinbridge/internal/api/coinmarketcap"
	"github.com/Alias1177/coinbridge/internal/bridge"
	"github.com/Alias1177/coinbridge/internal/endpoint"
	"github.com/Alias1177/coinbridge/internal/metrics"
	"github.com/Alias1177/coinbridge/internal/timeframe"
	"github.com/Alias1177/coinbridge/models"
)

type stubClient struct {
	lastKey    string
	lastSymbol string
	lastLimit  int
	err        error
}

func (s *stubClient) GetHistorical(ctx context.Context, symbol string, lookbackDays int, interval, apiKey string) ([]models.HistoricalPoint, error) {
	s.lastKey, s.lastSymbol = apiKey, symbol
	if s.err != nil {
		return nil, s.err
	}
	return []models.HistoricalPoint{
		{Timestamp: time.Unix(1704067200, 0).UTC(), Price: decimal.RequireFromString("42000.5"), Volume: decimal.RequireFromString("123.4")},
	}, nil
}

func (s *stubClient) GetLatest(ctx context.Context, limit int, apiKey string) ([]models.Listing, error) {
	s.lastKey, s.lastLimit = apiKey, limit
	if s.err != nil {
		return nil, s.err
	}
	return []models.Listing{{ID: 1, Name: "Bitcoin", Symbol: "BTC", Price: decimal.NewFromInt(42000)}}, nil
}

func newTestServer(client *stubClient, reg *prometheus.Registry) *Server {
	opts := bridge.Options{}
	if reg != nil {
		opts.Recorder = metrics.New(reg)
	}
	svc := bridge.New(client, timeframe.NewResolver(timeframe.ResolverOptions{}), opts)
	srvOpts := Options{DefaultAPIKey: "configured"}
	if reg != nil {
		srvOpts.Gatherer = reg
	}
	return New(svc, srvOpts)
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var body map[string]any
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := do(t, newTestServer(&stubClient{}, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestHistoricalRoute(t *testing.T) {
	client := &stubClient{}
	s := newTestServer(client, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/historical/sol?timeframe=24h&interval=1h", nil)
	req.Header.Set(APIKeyHeader, "header-key")
	rec, body := do(t, s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "SOL", body["symbol"])
	assert.Equal(t, "header-key", client.lastKey)
	assert.Equal(t, "SOL", client.lastSymbol)
	assert.Contains(t, rec.Body.String(), `"price":42000.5`)
}

func TestKeyPrecedence(t *testing.T) {
	client := &stubClient{}
	s := newTestServer(client, nil)

	do(t, s, httptest.NewRequest(http.MethodGet, "/api/historical/btc?timeframe=7d&api_key=query-key", nil))
	assert.Equal(t, "query-key", client.lastKey)

	do(t, s, httptest.NewRequest(http.MethodGet, "/api/historical/btc?timeframe=7d", nil))
	assert.Equal(t, "configured", client.lastKey)
}

func TestHistoricalBadTimeframe(t *testing.T) {
	rec, body := do(t, newTestServer(&stubClient{}, nil), httptest.NewRequest(http.MethodGet, "/api/historical/btc?timeframe=5d", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "5d")
}

func TestCryptoPrices(t *testing.T) {
	client := &stubClient{}
	s := newTestServer(client, nil)

	rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/crypto-prices?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 5, client.lastLimit)

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/crypto-prices?limit=lots", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchStatusMapping(t *testing.T) {
	tests := []struct {
		kind coinmarketcap.ErrorKind
		want int
	}{
		{coinmarketcap.KindUnauthorized, http.StatusUnauthorized},
		{coinmarketcap.KindRateLimited, http.StatusTooManyRequests},
		{coinmarketcap.KindUnavailable, http.StatusBadGateway},
		{coinmarketcap.KindMalformed, http.StatusBadGateway},
		{coinmarketcap.KindNoData, http.StatusNotFound},
		{coinmarketcap.KindRejected, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			client := &stubClient{err: &coinmarketcap.FetchError{Kind: tt.kind, Message: "upstream said no"}}
			rec, body := do(t, newTestServer(client, nil), httptest.NewRequest(http.MethodGet, "/api/historical/btc?timeframe=7d", nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "upstream said no", body["error"])
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusBadRequest, StatusFor(&endpoint.ParseError{Kind: endpoint.KindMissingField, Field: "api_key"}))
	assert.Equal(t, http.StatusBadRequest, StatusFor(fmt.Errorf("wrapped: %w", &timeframe.ResolveError{Kind: timeframe.KindUnsupportedInterval})))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("other")))
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(&stubClient{}, reg)

	do(t, s, httptest.NewRequest(http.MethodGet, "/api/historical/btc?timeframe=7d", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `coinbridge_calls_total{outcome="success",resource="historical"} 1`)
}

func TestMetricsRouteDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&stubClient{}, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
