package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalPoint represents a single sampled price of an asset
type HistoricalPoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
	Volume    decimal.Decimal
}

type historicalPointJSON struct {
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
}

// MarshalJSON writes the point with a unix-seconds timestamp and plain JSON numbers,
// which is what the mobile client decodes.
func (p HistoricalPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp int64       `json:"timestamp"`
		Price     json.Number `json:"price"`
		Volume    json.Number `json:"volume"`
	}{
		Timestamp: p.Timestamp.Unix(),
		Price:     Number(p.Price),
		Volume:    Number(p.Volume),
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (p *HistoricalPoint) UnmarshalJSON(b []byte) error {
	var raw historicalPointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Timestamp = time.Unix(raw.Timestamp, 0).UTC()
	p.Price = raw.Price
	p.Volume = raw.Volume
	return nil
}

// Listing is the latest market snapshot of one cryptocurrency
type Listing struct {
	ID               int64
	Name             string
	Symbol           string
	Price            decimal.Decimal
	Volume24h        decimal.Decimal
	MarketCap        decimal.Decimal
	PercentChange1h  decimal.Decimal
	PercentChange24h decimal.Decimal
	PercentChange7d  decimal.Decimal
	LastUpdated      time.Time
}

type listingJSON struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	Price            decimal.Decimal `json:"price"`
	Volume24h        decimal.Decimal `json:"volume_24h"`
	MarketCap        decimal.Decimal `json:"market_cap"`
	PercentChange1h  decimal.Decimal `json:"percent_change_1h"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	PercentChange7d  decimal.Decimal `json:"percent_change_7d"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// MarshalJSON writes decimals as JSON numbers.
func (l Listing) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID               int64       `json:"id"`
		Name             string      `json:"name"`
		Symbol           string      `json:"symbol"`
		Price            json.Number `json:"price"`
		Volume24h        json.Number `json:"volume_24h"`
		MarketCap        json.Number `json:"market_cap"`
		PercentChange1h  json.Number `json:"percent_change_1h"`
		PercentChange24h json.Number `json:"percent_change_24h"`
		PercentChange7d  json.Number `json:"percent_change_7d"`
		LastUpdated      string      `json:"last_updated"`
	}{
		ID:               l.ID,
		Name:             l.Name,
		Symbol:           l.Symbol,
		Price:            Number(l.Price),
		Volume24h:        Number(l.Volume24h),
		MarketCap:        Number(l.MarketCap),
		PercentChange1h:  Number(l.PercentChange1h),
		PercentChange24h: Number(l.PercentChange24h),
		PercentChange7d:  Number(l.PercentChange7d),
		LastUpdated:      l.LastUpdated.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (l *Listing) UnmarshalJSON(b []byte) error {
	var raw listingJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*l = Listing(raw)
	return nil
}

// Number renders a decimal as a JSON number literal
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
