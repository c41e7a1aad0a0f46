// Package bridge runs one endpoint request end to end: parse, resolve, fetch and
// wrap the outcome in an envelope.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/coinbridge/internal/api/coinmarketcap"
	"github.com/Alias1177/coinbridge/internal/endpoint"
	"github.com/Alias1177/coinbridge/internal/envelope"
	"github.com/Alias1177/coinbridge/internal/logging"
	"github.com/Alias1177/coinbridge/internal/timeframe"
	"github.com/Alias1177/coinbridge/models"
)

const DefaultCallTimeout = 30 * time.Second

// Outcome labels reported to the Recorder besides the fetch error kinds.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidRequest = "invalid_request"
)

// Recorder observes finished calls
type Recorder interface {
	ObserveCall(resource, outcome string, d time.Duration)
	RecordLastPrice(symbol string, price float64)
}

// Options holds options for creating a Service
type Options struct {
	CallTimeout time.Duration
	Recorder    Recorder
}

// Service answers endpoint requests
type Service struct {
	client      models.MarketDataClient
	resolver    *timeframe.Resolver
	callTimeout time.Duration
	recorder    Recorder
	logger      zerolog.Logger
}

// Result is the answer to one call. Err is nil on success.
type Result struct {
	Envelope envelope.Envelope
	Err      error
	Outcome  string
}

// New creates a Service
func New(client models.MarketDataClient, resolver *timeframe.Resolver, opts Options) *Service {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if resolver == nil {
		resolver = timeframe.NewResolver(timeframe.ResolverOptions{})
	}
	return &Service{
		client:      client,
		resolver:    resolver,
		callTimeout: opts.CallTimeout,
		recorder:    opts.Recorder,
		logger:      log.With().Str("component", "bridge").Logger(),
	}
}

// Handle processes raw and never fails: every error is folded into the envelope.
func (s *Service) Handle(ctx context.Context, raw string) Result {
	start := time.Now()
	logger := s.logger.With().Str("call_id", uuid.NewString()).Logger()

	req, err := endpoint.Parse(raw)
	if err != nil {
		logger.Info().Err(err).Msg("Rejected endpoint")
		return s.finish(logger, "unknown", start, failed(err, envelope.Meta{}, OutcomeInvalidRequest))
	}

	logger = logger.With().
		Str("resource", string(req.Resource)).
		Str("key", logging.KeyFingerprint(req.APIKey)).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	var res Result
	switch req.Resource {
	case endpoint.ResourceLatest:
		res = s.latest(ctx, logger, req)
	default:
		res = s.historical(ctx, logger, req)
	}
	return s.finish(logger, string(req.Resource), start, res)
}

// Respond is Handle followed by envelope encoding.
func (s *Service) Respond(ctx context.Context, raw string) ([]byte, Result, error) {
	res := s.Handle(ctx, raw)
	b, err := envelope.Encode(res.Envelope)
	return b, res, err
}

func (s *Service) historical(ctx context.Context, logger zerolog.Logger, req endpoint.Request) Result {
	meta := envelope.Meta{Symbol: req.Symbol, Timeframe: string(req.Timeframe)}

	rng, err := s.resolver.Resolve(req.Timeframe, req.Interval)
	if err != nil {
		logger.Info().Err(err).Str("timeframe", string(req.Timeframe)).Str("interval", req.Interval).Msg("Rejected timeframe")
		return failed(err, meta, OutcomeInvalidRequest)
	}
	meta.Interval = rng.Interval.String()

	logger.Debug().
		Str("symbol", req.Symbol).
		Int("lookback_days", rng.LookbackDays).
		Str("interval", meta.Interval).
		Msg("Fetching historical data")

	points, err := s.client.GetHistorical(ctx, req.Symbol, rng.LookbackDays, rng.Interval.String(), req.APIKey)
	if err != nil {
		fe := asFetchError(ctx, err)
		logger.Warn().Err(err).Str("kind", fe.Kind.String()).Msg("Historical fetch failed")
		return failed(fe, meta, fe.Kind.String())
	}

	if s.recorder != nil && len(points) > 0 {
		last, _ := points[len(points)-1].Price.Float64()
		s.recorder.RecordLastPrice(req.Symbol, last)
	}
	return Result{Envelope: envelope.Success(points, meta), Outcome: OutcomeSuccess}
}

func (s *Service) latest(ctx context.Context, logger zerolog.Logger, req endpoint.Request) Result {
	listings, err := s.client.GetLatest(ctx, req.Limit, req.APIKey)
	if err != nil {
		fe := asFetchError(ctx, err)
		logger.Warn().Err(err).Str("kind", fe.Kind.String()).Msg("Latest listings fetch failed")
		return failed(fe, envelope.Meta{}, fe.Kind.String())
	}
	return Result{Envelope: envelope.Success(listings, envelope.Meta{}), Outcome: OutcomeSuccess}
}

func (s *Service) finish(logger zerolog.Logger, resource string, start time.Time, res Result) Result {
	elapsed := time.Since(start)
	if s.recorder != nil {
		s.recorder.ObserveCall(resource, res.Outcome, elapsed)
	}
	logger.Info().
		Bool("success", res.Err == nil).
		Str("outcome", res.Outcome).
		Dur("elapsed", elapsed).
		Msg("Call finished")
	return res
}

func failed(err error, meta envelope.Meta, outcome string) Result {
	return Result{Envelope: envelope.Failure(err, meta), Err: err, Outcome: outcome}
}

// asFetchError keeps provider errors as they are and hides anything else behind a
// generic message, since foreign errors may carry URLs.
func asFetchError(ctx context.Context, err error) *coinmarketcap.FetchError {
	var fe *coinmarketcap.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &coinmarketcap.FetchError{Kind: coinmarketcap.KindUnavailable, Message: "market data request timed out", Cause: err}
	}
	return &coinmarketcap.FetchError{Kind: coinmarketcap.KindUnavailable, Message: "market data provider failed", Cause: err}
}
