package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/coinbridge/internal/api/coinmarketcap"
	"github.com/Alias1177/coinbridge/internal/endpoint"
	"github.com/Alias1177/coinbridge/internal/timeframe"
	"github.com/Alias1177/coinbridge/models"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetHistorical(ctx context.Context, symbol string, lookbackDays int, interval, apiKey string) ([]models.HistoricalPoint, error) {
	args := m.Called(ctx, symbol, lookbackDays, interval, apiKey)
	points, _ := args.Get(0).([]models.HistoricalPoint)
	return points, args.Error(1)
}

func (m *mockClient) GetLatest(ctx context.Context, limit int, apiKey string) ([]models.Listing, error) {
	args := m.Called(ctx, limit, apiKey)
	listings, _ := args.Get(0).([]models.Listing)
	return listings, args.Error(1)
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	prices   map[string]float64
}

func (r *fakeRecorder) ObserveCall(resource, outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, resource+"/"+outcome)
}

func (r *fakeRecorder) RecordLastPrice(symbol string, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prices == nil {
		r.prices = map[string]float64{}
	}
	r.prices[symbol] = price
}

type wire struct {
	Success   bool              `json:"success"`
	Data      []json.RawMessage `json:"data"`
	Error     string            `json:"error"`
	Symbol    string            `json:"symbol"`
	Timeframe string            `json:"timeframe"`
	Interval  string            `json:"interval"`
}

func hourly(end time.Time, n int) []models.HistoricalPoint {
	points := make([]models.HistoricalPoint, n)
	for i := range points {
		points[i] = models.HistoricalPoint{
			Timestamp: end.Add(-time.Duration(n-1-i) * time.Hour),
			Price:     decimal.NewFromFloat(100.25).Add(decimal.NewFromInt(int64(i))),
			Volume:    decimal.NewFromInt(5000),
		}
	}
	return points
}

func respond(t *testing.T, s *Service, raw string) (wire, Result) {
	t.Helper()
	b, res, err := s.Respond(context.Background(), raw)
	require.NoError(t, err)
	var w wire
	require.NoError(t, json.Unmarshal(b, &w))
	return w, res
}

func TestHistoricalSuccess(t *testing.T) {
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	client := &mockClient{}
	client.On("GetHistorical", mock.Anything, "SOL", 1, "1h", "VALID").Return(hourly(end, 25), nil).Once()
	rec := &fakeRecorder{}

	s := New(client, timeframe.NewResolver(timeframe.ResolverOptions{}), Options{Recorder: rec})
	w, res := respond(t, s, "cmc://historical/sol?timeframe=24h&interval=1h&api_key=VALID")

	require.True(t, w.Success, w.Error)
	assert.NoError(t, res.Err)
	assert.Empty(t, w.Error)
	assert.Equal(t, "SOL", w.Symbol)
	assert.Equal(t, "24h", w.Timeframe)
	assert.Equal(t, "1h", w.Interval)
	require.Len(t, w.Data, 25)

	var first, second models.HistoricalPoint
	require.NoError(t, json.Unmarshal(w.Data[0], &first))
	require.NoError(t, json.Unmarshal(w.Data[1], &second))
	assert.Equal(t, time.Hour, second.Timestamp.Sub(first.Timestamp))

	assert.Equal(t, []string{"historical/success"}, rec.outcomes)
	assert.Equal(t, 124.25, rec.prices["SOL"])
	client.AssertExpectations(t)
}

func TestDefaultIntervalFromTimeframe(t *testing.T) {
	client := &mockClient{}
	client.On("GetHistorical", mock.Anything, "ETH", 30, "1d", "k").Return(hourly(time.Now(), 2), nil).Once()

	s := New(client, nil, Options{})
	w, _ := respond(t, s, "cmc://historical/ETH?timeframe=30d&api_key=k")
	assert.True(t, w.Success)
	assert.Equal(t, "1d", w.Interval)
	client.AssertExpectations(t)
}

func TestInvalidRequestsNeverFetch(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		text string
	}{
		{name: "missing api key", raw: "cmc://historical/btc?timeframe=24h", text: "api_key"},
		{name: "missing symbol", raw: "cmc://historical/?timeframe=24h&api_key=k", text: "symbol"},
		{name: "unknown timeframe", raw: "cmc://historical/btc?timeframe=5d&api_key=k", text: `unknown timeframe "5d"`},
		{name: "unsupported interval", raw: "cmc://historical/btc?timeframe=7d&interval=7m&api_key=k", text: "7m"},
		{name: "incompatible interval", raw: "cmc://historical/btc?timeframe=all&interval=1h&api_key=k", text: "provider limit"},
		{name: "garbage", raw: "::::", text: "malformed"},
		{name: "empty", raw: "", text: "endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			rec := &fakeRecorder{}
			s := New(client, nil, Options{Recorder: rec})

			w, res := respond(t, s, tt.raw)
			assert.False(t, w.Success)
			assert.Nil(t, w.Data)
			assert.Contains(t, w.Error, tt.text)
			assert.Error(t, res.Err)
			assert.Equal(t, OutcomeInvalidRequest, res.Outcome)
			client.AssertNotCalled(t, "GetHistorical", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestParseErrorIsTyped(t *testing.T) {
	s := New(&mockClient{}, nil, Options{})
	res := s.Handle(context.Background(), "cmc://historical/btc?timeframe=5d&api_key=k")
	assert.True(t, errors.Is(res.Err, endpoint.ErrUnknownTimeframe))
}

func TestUnauthorizedKey(t *testing.T) {
	client := &mockClient{}
	authErr := &coinmarketcap.FetchError{Kind: coinmarketcap.KindUnauthorized, Message: "authorization failed: CoinMarketCap rejected the API key"}
	client.On("GetHistorical", mock.Anything, "BTC", 7, "1h", "INVALID").Return(nil, authErr).Once()

	s := New(client, nil, Options{})
	w, res := respond(t, s, "cmc://historical/btc?timeframe=7d&api_key=INVALID")

	assert.False(t, w.Success)
	assert.Contains(t, w.Error, "authorization")
	assert.True(t, errors.Is(res.Err, coinmarketcap.ErrUnauthorized))
	assert.Equal(t, "unauthorized", res.Outcome)
}

func TestForeignErrorsAreHidden(t *testing.T) {
	client := &mockClient{}
	client.On("GetHistorical", mock.Anything, "BTC", 7, "1h", "k").
		Return(nil, errors.New("Get https://pro-api.coinmarketcap.com/v2/...: dial tcp")).Once()

	s := New(client, nil, Options{})
	w, res := respond(t, s, "cmc://historical/btc?timeframe=7d&api_key=k")
	assert.False(t, w.Success)
	assert.NotContains(t, w.Error, "https://")
	assert.True(t, errors.Is(res.Err, coinmarketcap.ErrUnavailable))
}

func TestCallTimeout(t *testing.T) {
	client := &mockClient{}
	client.On("GetHistorical", mock.Anything, "BTC", 1, "1h", "k").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	s := New(client, nil, Options{CallTimeout: 20 * time.Millisecond})

	done := make(chan Result, 1)
	go func() { done <- s.Handle(context.Background(), "cmc://historical/btc?timeframe=1h&api_key=k") }()

	select {
	case res := <-done:
		assert.False(t, res.Envelope.Success)
		assert.Contains(t, res.Envelope.Error, "timed out")
		assert.True(t, errors.Is(res.Err, coinmarketcap.ErrUnavailable))
	case <-time.After(2 * time.Second):
		t.Fatal("call did not honour its timeout")
	}
}

func TestIdempotent(t *testing.T) {
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	client := &mockClient{}
	client.On("GetHistorical", mock.Anything, "SOL", 1, "1h", "VALID").Return(hourly(end, 25), nil)

	s := New(client, nil, Options{})
	raw := "cmc://historical/sol?timeframe=24h&interval=1h&api_key=VALID"

	first, _, err := s.Respond(context.Background(), raw)
	require.NoError(t, err)
	second, _, err := s.Respond(context.Background(), raw)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestLatest(t *testing.T) {
	client := &mockClient{}
	client.On("GetLatest", mock.Anything, 2, "k").Return([]models.Listing{
		{ID: 1, Name: "Bitcoin", Symbol: "BTC", Price: decimal.NewFromInt(42000)},
		{ID: 1027, Name: "Ethereum", Symbol: "ETH", Price: decimal.NewFromInt(2300)},
	}, nil).Once()
	rec := &fakeRecorder{}

	s := New(client, nil, Options{Recorder: rec})
	w, _ := respond(t, s, "cmc://latest?limit=2&api_key=k")
	assert.True(t, w.Success)
	assert.Len(t, w.Data, 2)
	assert.Equal(t, []string{"latest/success"}, rec.outcomes)
}

func TestLatestNoData(t *testing.T) {
	client := &mockClient{}
	client.On("GetLatest", mock.Anything, 100, "k").
		Return(nil, &coinmarketcap.FetchError{Kind: coinmarketcap.KindNoData, Message: "no listings returned"}).Once()

	s := New(client, nil, Options{})
	w, res := respond(t, s, "cmc://latest?api_key=k")
	assert.False(t, w.Success)
	assert.Equal(t, "no listings returned", w.Error)
	assert.Equal(t, "no_data", res.Outcome)
}
