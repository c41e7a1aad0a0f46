// Package ffi implements the C ABI behind the exported bridge functions.
//
// Every returned buffer is allocated with malloc, recorded in an ownership
// ledger and handed to the caller, who must release it with Free. A nil return
// means the call could not produce an envelope at all.
package ffi

/*
#include <stdlib.h>
*/
import "C"

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
	"unsafe"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/coinbridge/internal/bridge"
	"github.com/Alias1177/coinbridge/internal/config"
	"github.com/Alias1177/coinbridge/internal/endpoint"
	"github.com/Alias1177/coinbridge/internal/envelope"
	"github.com/Alias1177/coinbridge/internal/logging"
)

var errInvalidUTF8 = errors.New("argument is not valid UTF-8")

type state struct {
	svc        *bridge.Service
	defaultKey string
	pollEvery  time.Duration
	err        error
}

var (
	initOnce sync.Once
	mu       sync.RWMutex
	current  *state
)

// Install replaces the bridge used by the exported functions and stops any
// running price watcher.
func Install(svc *bridge.Service, defaultKey string) {
	StopPriceUpdates()
	initOnce.Do(func() {})
	mu.Lock()
	current = &state{svc: svc, defaultKey: defaultKey}
	mu.Unlock()
}

func active() *state {
	initOnce.Do(func() {
		st := build()
		mu.Lock()
		current = st
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// build wires the bridge from process configuration on first use.
func build() *state {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Loading bridge configuration failed")
		return &state{err: fmt.Errorf("bridge configuration: %w", err)}
	}
	if _, err := logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}); err != nil {
		log.Warn().Err(err).Msg("Logger setup failed, keeping defaults")
	}

	svc := bridge.FromConfig(cfg, nil)

	log.Info().
		Str("component", "ffi").
		Str("base_url", cfg.CMC.BaseURL).
		Str("default_key", logging.KeyFingerprint(cfg.CMC.APIKey)).
		Msg("Bridge initialised")
	return &state{svc: svc, defaultKey: cfg.CMC.APIKey, pollEvery: cfg.CMC.PricePollInterval}
}

// DefaultAPIKey reports the key used by the key-less entry points.
func DefaultAPIKey() string {
	return active().defaultKey
}

// HistoricalData answers a cmc:// endpoint string. endpoint is a const char*.
func HistoricalData(endpointStr unsafe.Pointer) unsafe.Pointer {
	return guard(func() ([]byte, error) {
		raw, err := goString(endpointStr)
		if err != nil {
			return envelope.Encode(envelope.Failure(err, envelope.Meta{}))
		}
		return respond(raw)
	})
}

// HistoricalBySymbol answers a symbol/timeframe pair using the configured API key.
func HistoricalBySymbol(symbol, tf unsafe.Pointer) unsafe.Pointer {
	return guard(func() ([]byte, error) {
		sym, err := goString(symbol)
		if err != nil {
			return envelope.Encode(envelope.Failure(fmt.Errorf("symbol: %w", err), envelope.Meta{}))
		}
		token, err := goString(tf)
		if err != nil {
			return envelope.Encode(envelope.Failure(fmt.Errorf("timeframe: %w", err), envelope.Meta{}))
		}
		st := active()
		return respond(endpoint.Historical(sym, token, "", st.defaultKey))
	})
}

// LatestData answers the latest listings using the configured API key.
func LatestData() unsafe.Pointer {
	return guard(func() ([]byte, error) {
		st := active()
		return respond(endpoint.Latest(endpoint.DefaultLatestLimit, st.defaultKey))
	})
}

// Free releases a buffer returned by this package. Nil, foreign and already
// released pointers are ignored.
func Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	if !release(uintptr(p)) {
		log.Warn().Str("component", "ffi").Msg("Ignoring free of a pointer this library does not own")
		return
	}
	C.free(p)
}

func respond(raw string) ([]byte, error) {
	st := active()
	if st.err != nil {
		return envelope.Encode(envelope.Failure(st.err, envelope.Meta{}))
	}
	b, _, err := st.svc.Respond(context.Background(), raw)
	return b, err
}

// guard turns a produced payload into a C string. Panics, encode errors and
// payloads with an interior NUL yield nil.
func guard(produce func() ([]byte, error)) (out unsafe.Pointer) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "ffi").Interface("panic", r).Msg("Recovered from panic in bridge call")
			out = nil
		}
	}()

	b, err := produce()
	if err != nil {
		log.Error().Str("component", "ffi").Err(err).Msg("Could not encode response")
		return nil
	}
	if bytes.IndexByte(b, 0) >= 0 {
		log.Error().Str("component", "ffi").Msg("Response contains a NUL byte")
		return nil
	}

	p := unsafe.Pointer(C.CString(string(b)))
	track(uintptr(p))
	return p
}

func goString(p unsafe.Pointer) (string, error) {
	if p == nil {
		return "", nil
	}
	s := C.GoString((*C.char)(p))
	if !utf8.ValidString(s) {
		return "", errInvalidUTF8
	}
	return s, nil
}
