package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/coinbridge/internal/api/coinmarketcap"
	"github.com/Alias1177/coinbridge/internal/endpoint"
	"github.com/Alias1177/coinbridge/models"
)

func TestWatchNotifiesUntilCancelled(t *testing.T) {
	client := &mockClient{}
	client.On("GetLatest", mock.Anything, 10, "k").
		Return([]models.Listing{{ID: 1, Name: "Bitcoin", Symbol: "BTC", Price: decimal.NewFromInt(42000)}}, nil)
	s := New(client, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	var ticks int32
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, endpoint.Latest(10, "k"), 5*time.Millisecond, func(res Result) {
			assert.True(t, res.Envelope.Success)
			atomic.AddInt32(&ticks, 1)
		})
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	stopped := atomic.LoadInt32(&ticks)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&ticks))
}

func TestWatchSkipsFailedPolls(t *testing.T) {
	client := &mockClient{}
	client.On("GetLatest", mock.Anything, 10, "k").
		Return(nil, &coinmarketcap.FetchError{Kind: coinmarketcap.KindRateLimited, Message: "rate limit exceeded"})
	s := New(client, nil, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	var ticks int32
	err := s.Watch(ctx, endpoint.Latest(10, "k"), 5*time.Millisecond, func(Result) {
		atomic.AddInt32(&ticks, 1)
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Zero(t, atomic.LoadInt32(&ticks))
	client.AssertCalled(t, "GetLatest", mock.Anything, 10, "k")
}

func TestWatchInvalidEndpointNeverFetches(t *testing.T) {
	client := &mockClient{}
	s := New(client, nil, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_ = s.Watch(ctx, "cmc://latest", 2*time.Millisecond, func(Result) { t.Error("unexpected notify") })
	client.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything, mock.Anything)
}
