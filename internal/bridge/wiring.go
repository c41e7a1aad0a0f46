package bridge

import (
	"github.com/Alias1177/coinbridge/internal/api/coinmarketcap"
	"github.com/Alias1177/coinbridge/internal/config"
	"github.com/Alias1177/coinbridge/internal/timeframe"
)

// FromConfig wires a Service to CoinMarketCap using cfg. rec may be nil.
func FromConfig(cfg *config.Config, rec Recorder) *Service {
	client := coinmarketcap.NewClient(coinmarketcap.ClientOptions{
		BaseURL:         cfg.CMC.BaseURL,
		Convert:         cfg.CMC.Convert,
		RequestTimeout:  cfg.CMC.RequestTimeout,
		RequestsPerSec:  cfg.CMC.RequestsPerSec,
		MaxRetries:      cfg.CMC.MaxRetries,
		MaxRetryTimeout: cfg.CMC.MaxRetryElapsed,
	})
	resolver := timeframe.NewResolver(timeframe.ResolverOptions{
		AllTimeframeDays: cfg.CMC.AllTimeframeDays,
		MaxPoints:        cfg.CMC.MaxPoints,
	})
	return New(client, resolver, Options{CallTimeout: cfg.CMC.CallTimeout, Recorder: rec})
}
