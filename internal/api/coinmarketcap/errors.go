package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	httpClient "github.com/Alias1177/coinbridge/internal/platform/http"
)

// ErrorKind classifies upstream failures
type ErrorKind int

const (
	KindUnavailable ErrorKind = iota + 1
	KindUnauthorized
	KindRateLimited
	KindMalformed
	KindRejected
	KindNoData
)

var (
	ErrUnavailable  = errors.New("market data provider unavailable")
	ErrUnauthorized = errors.New("market data provider authorization failed")
	ErrRateLimited  = errors.New("market data provider rate limit exceeded")
	ErrMalformed    = errors.New("malformed market data payload")
	ErrRejected     = errors.New("market data request rejected")
	ErrNoData       = errors.New("no market data")
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	case KindRejected:
		return "rejected"
	case KindNoData:
		return "no_data"
	default:
		return "unavailable"
	}
}

// FetchError is a provider failure safe to show to the caller.
// Cause keeps the transport detail for logs only.
type FetchError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel for errors.Is.
func (e *FetchError) Unwrap() error {
	switch e.Kind {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindRateLimited:
		return ErrRateLimited
	case KindMalformed:
		return ErrMalformed
	case KindRejected:
		return ErrRejected
	case KindNoData:
		return ErrNoData
	default:
		return ErrUnavailable
	}
}

const maxProviderMessage = 200

// classify turns a transport error into a FetchError.
func classify(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	var statusErr *httpClient.HTTPStatusError
	if errors.As(err, &statusErr) {
		return fromStatus(statusErr.StatusCode, providerMessage(statusErr.Body), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindUnavailable, Message: "CoinMarketCap request timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &FetchError{Kind: KindUnavailable, Message: "CoinMarketCap request was cancelled", Cause: err}
	}
	return &FetchError{Kind: KindUnavailable, Message: "CoinMarketCap could not be reached", Cause: err}
}

func fromStatus(code int, detail string, cause error) *FetchError {
	switch {
	case code == 401 || code == 403:
		return &FetchError{Kind: KindUnauthorized, Message: "authorization failed: CoinMarketCap rejected the API key", Cause: cause}
	case code == 429:
		return &FetchError{Kind: KindRateLimited, Message: "CoinMarketCap rate limit exceeded, try again later", Cause: cause}
	case code >= 500:
		return &FetchError{Kind: KindUnavailable, Message: fmt.Sprintf("CoinMarketCap is unavailable (status %d)", code), Cause: cause}
	}
	msg := fmt.Sprintf("CoinMarketCap rejected the request (status %d)", code)
	if detail != "" {
		msg += ": " + detail
	}
	return &FetchError{Kind: KindRejected, Message: msg, Cause: cause}
}

// fromStatusCode maps the error_code CMC reports inside a 200 body.
func fromStatusCode(code int, detail string) *FetchError {
	cause := fmt.Errorf("provider error_code %d", code)
	switch code {
	case 1001, 1002:
		return fromStatus(401, detail, cause)
	case 1008, 1009, 1010, 1011:
		return fromStatus(429, detail, cause)
	default:
		return fromStatus(400, detail, cause)
	}
}

func providerMessage(body []byte) string {
	var env struct {
		Status status `json:"status"`
	}
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return ""
	}
	return truncate(env.Status.ErrorMessage)
}
