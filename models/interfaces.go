package models

import "context"

// MarketDataClient is the upstream market data provider as seen by the bridge
type MarketDataClient interface {
	GetHistorical(ctx context.Context, symbol string, lookbackDays int, interval, apiKey string) ([]HistoricalPoint, error)
	GetLatest(ctx context.Context, limit int, apiKey string) ([]Listing, error)
}
