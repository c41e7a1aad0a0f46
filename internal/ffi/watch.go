package ffi

/*
typedef void (*PriceUpdateCallback)(const void*);

static void call_price_cb(PriceUpdateCallback cb) { cb((const void*)0); }
*/
import "C"

import (
	"context"
	"sync"
	"time"
	"unsafe"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/coinbridge/internal/bridge"
	"github.com/Alias1177/coinbridge/internal/endpoint"
)

type watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	watchMu sync.Mutex
	running *watcher
)

// RegisterPriceCallback starts polling the latest listings with the configured
// key and invokes cb, a PriceUpdateCallback, with NULL after every successful
// poll. Registering again replaces the previous callback; nil stops updates.
// cb must not register or stop updates itself.
func RegisterPriceCallback(cb unsafe.Pointer) {
	if cb == nil {
		StopPriceUpdates()
		return
	}
	fn := C.PriceUpdateCallback(cb)
	register(func() { C.call_price_cb(fn) }, active().pollEvery)
}

// StopPriceUpdates stops the running price watcher, if any, and waits for it to exit.
func StopPriceUpdates() {
	watchMu.Lock()
	w := running
	running = nil
	watchMu.Unlock()

	if w != nil {
		w.cancel()
		<-w.done
	}
}

func register(notify func(), every time.Duration) {
	StopPriceUpdates()

	st := active()
	if st.err != nil {
		log.Error().Str("component", "ffi").Err(st.err).Msg("Price updates unavailable")
		return
	}
	if st.defaultKey == "" {
		log.Warn().Str("component", "ffi").Msg("Price updates need CMC_API_KEY, callback not started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{cancel: cancel, done: make(chan struct{})}

	watchMu.Lock()
	prev := running
	running = w
	watchMu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	raw := endpoint.Latest(endpoint.DefaultLatestLimit, st.defaultKey)
	go func() {
		defer close(w.done)
		_ = st.svc.Watch(ctx, raw, every, func(bridge.Result) {
			if ctx.Err() == nil {
				notify()
			}
		})
	}()
}

func watching() bool {
	watchMu.Lock()
	defer watchMu.Unlock()
	return running != nil
}
