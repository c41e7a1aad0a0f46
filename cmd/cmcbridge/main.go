// Command cmcbridge is built as a C library for the mobile client:
//
//	go build -buildmode=c-archive -o libcmcbridge.a ./cmd/cmcbridge
//	go build -buildmode=c-shared -o libcmcbridge.so ./cmd/cmcbridge
package main

/*
#include <stdlib.h>

typedef void (*PriceUpdateCallback)(const void*);
*/
import "C"

import (
	"unsafe"

	"github.com/Alias1177/coinbridge/internal/ffi"
)

//export get_historical_crypto_data
func get_historical_crypto_data(endpoint *C.char) *C.char {
	return (*C.char)(ffi.HistoricalData(unsafe.Pointer(endpoint)))
}

//export get_historical_data
func get_historical_data(symbol *C.char, timeframe *C.char) *C.char {
	return (*C.char)(ffi.HistoricalBySymbol(unsafe.Pointer(symbol), unsafe.Pointer(timeframe)))
}

//export get_crypto_data
func get_crypto_data() *C.char {
	return (*C.char)(ffi.LatestData())
}

//export free_string
func free_string(s *C.char) {
	ffi.Free(unsafe.Pointer(s))
}

//export register_price_update_callback
func register_price_update_callback(cb C.PriceUpdateCallback) {
	ffi.RegisterPriceCallback(unsafe.Pointer(cb))
}

func main() {}
