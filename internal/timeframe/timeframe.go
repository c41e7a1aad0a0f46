package timeframe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alias1177/coinbridge/models"
)

// Timeframe is a requested historical window such as "24h" or "all"
type Timeframe string

const (
	TF1h   Timeframe = "1h"
	TF24h  Timeframe = "24h"
	TF7d   Timeframe = "7d"
	TF30d  Timeframe = "30d"
	TF90d  Timeframe = "90d"
	TF365d Timeframe = "365d"
	TFAll  Timeframe = "all"
)

// Ordered lists every recognised timeframe from the shortest to the longest window.
var Ordered = []Timeframe{TF1h, TF24h, TF7d, TF30d, TF90d, TF365d, TFAll}

// Parse validates a raw timeframe token. Tokens are matched case-insensitively.
func Parse(token string) (Timeframe, bool) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(token)))
	for _, known := range Ordered {
		if tf == known {
			return tf, true
		}
	}
	return "", false
}

// Interval is a provider sampling interval token
type Interval string

// Interval tokens accepted by CoinMarketCap's historical quotes endpoint.
var intervals = map[Interval]time.Duration{
	"5m":   5 * time.Minute,
	"10m":  10 * time.Minute,
	"15m":  15 * time.Minute,
	"30m":  30 * time.Minute,
	"45m":  45 * time.Minute,
	"1h":   time.Hour,
	"2h":   2 * time.Hour,
	"3h":   3 * time.Hour,
	"4h":   4 * time.Hour,
	"6h":   6 * time.Hour,
	"12h":  12 * time.Hour,
	"1d":   24 * time.Hour,
	"2d":   2 * 24 * time.Hour,
	"3d":   3 * 24 * time.Hour,
	"7d":   7 * 24 * time.Hour,
	"14d":  14 * 24 * time.Hour,
	"15d":  15 * 24 * time.Hour,
	"30d":  30 * 24 * time.Hour,
	"60d":  60 * 24 * time.Hour,
	"90d":  90 * 24 * time.Hour,
	"365d": 365 * 24 * time.Hour,
}

var intervalAliases = map[string]Interval{
	"hourly":  "1h",
	"daily":   "1d",
	"weekly":  "7d",
	"monthly": "30d",
	"yearly":  "365d",
}

// ParseInterval normalises an interval token or alias.
func ParseInterval(token string) (Interval, bool) {
	low := strings.ToLower(strings.TrimSpace(token))
	if alias, ok := intervalAliases[low]; ok {
		return alias, true
	}
	iv := Interval(low)
	if _, ok := intervals[iv]; ok {
		return iv, true
	}
	return "", false
}

// Duration returns the sampling step of the interval, or zero for unknown tokens.
func (i Interval) Duration() time.Duration {
	return intervals[i]
}

func (i Interval) String() string { return string(i) }

// Range is the concrete historical window a timeframe resolves to
type Range struct {
	LookbackDays int
	Interval     Interval
}

type window struct {
	days     int
	interval Interval
}

var windows = map[Timeframe]window{
	TF1h:   {days: 1, interval: "1h"},
	TF24h:  {days: 1, interval: "1h"},
	TF7d:   {days: 7, interval: "1h"},
	TF30d:  {days: 30, interval: "1d"},
	TF90d:  {days: 90, interval: "1d"},
	TF365d: {days: 365, interval: "1d"},
	TFAll:  {interval: "1d"},
}

const (
	// DefaultAllDays is the lookback used for "all" when none is configured.
	DefaultAllDays = 1825
	// MaxAllDays caps the "all" lookback so the window stays within time.Duration.
	MaxAllDays = 36500
	// DefaultMaxPoints is the largest sample count a single provider request may return.
	DefaultMaxPoints = 10000
)

// ResolverOptions holds options for creating a Resolver
type ResolverOptions struct {
	AllTimeframeDays int
	MaxPoints        int
}

// Resolver maps timeframe tokens to lookback windows
type Resolver struct {
	allDays   int
	maxPoints int
}

// NewResolver creates a Resolver. The "all" ceiling is kept strictly longer
// than the 365d window and no longer than MaxAllDays.
func NewResolver(opts ResolverOptions) *Resolver {
	if opts.AllTimeframeDays == 0 {
		opts.AllTimeframeDays = DefaultAllDays
	}
	if floor := windows[TF365d].days + 1; opts.AllTimeframeDays < floor {
		opts.AllTimeframeDays = floor
	}
	if opts.AllTimeframeDays > MaxAllDays {
		opts.AllTimeframeDays = MaxAllDays
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = DefaultMaxPoints
	}
	return &Resolver{allDays: opts.AllTimeframeDays, maxPoints: opts.MaxPoints}
}

// Resolve returns the window for tf. An empty interval selects the timeframe default.
func (r *Resolver) Resolve(tf Timeframe, interval string) (Range, error) {
	w, ok := windows[tf]
	if !ok {
		return Range{}, &ResolveError{Kind: KindUnknownTimeframe, Timeframe: tf}
	}
	days := w.days
	if tf == TFAll {
		days = r.allDays
	}

	rng := Range{LookbackDays: days, Interval: w.interval}
	if strings.TrimSpace(interval) == "" {
		return rng, nil
	}

	iv, ok := ParseInterval(interval)
	if !ok {
		return Range{}, &ResolveError{Kind: KindUnsupportedInterval, Timeframe: tf, Interval: interval}
	}
	step := iv.Duration()
	if step > time.Duration(days)*24*time.Hour {
		return Range{}, &ResolveError{Kind: KindIntervalIncompatible, Timeframe: tf, Interval: interval,
			Reason: fmt.Sprintf("interval is longer than the %d day window", days)}
	}
	if n := models.ExpectedPoints(step, days); n > r.maxPoints {
		return Range{}, &ResolveError{Kind: KindIntervalIncompatible, Timeframe: tf, Interval: interval,
			Reason: fmt.Sprintf("%d points exceed the provider limit of %d", n, r.maxPoints)}
	}
	rng.Interval = iv
	return rng, nil
}

// ResolveErrorKind classifies resolver failures
type ResolveErrorKind int

const (
	KindUnknownTimeframe ResolveErrorKind = iota + 1
	KindUnsupportedInterval
	KindIntervalIncompatible
)

var (
	ErrUnknownTimeframe     = errors.New("unknown timeframe")
	ErrUnsupportedInterval  = errors.New("unsupported interval")
	ErrIntervalIncompatible = errors.New("interval incompatible with timeframe")
)

// ResolveError reports a timeframe/interval pair that cannot be served
type ResolveError struct {
	Kind      ResolveErrorKind
	Timeframe Timeframe
	Interval  string
	Reason    string
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case KindUnknownTimeframe:
		return fmt.Sprintf("unknown timeframe %q", string(e.Timeframe))
	case KindUnsupportedInterval:
		return fmt.Sprintf("unsupported interval %q", e.Interval)
	default:
		return fmt.Sprintf("interval %q cannot be used with timeframe %q: %s", e.Interval, string(e.Timeframe), e.Reason)
	}
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ResolveError) Unwrap() error {
	switch e.Kind {
	case KindUnknownTimeframe:
		return ErrUnknownTimeframe
	case KindUnsupportedInterval:
		return ErrUnsupportedInterval
	default:
		return ErrIntervalIncompatible
	}
}
