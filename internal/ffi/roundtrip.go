package ffi

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// Call drives HistoricalData the way a C caller does: allocate the argument,
// read the returned buffer and free it. ok is false when the library returned nil.
func Call(endpointStr string) (string, bool) {
	arg := C.CString(endpointStr)
	defer C.free(unsafe.Pointer(arg))
	return take(HistoricalData(unsafe.Pointer(arg)))
}

// CallBySymbol is Call for HistoricalBySymbol.
func CallBySymbol(symbol, tf string) (string, bool) {
	s := C.CString(symbol)
	defer C.free(unsafe.Pointer(s))
	t := C.CString(tf)
	defer C.free(unsafe.Pointer(t))
	return take(HistoricalBySymbol(unsafe.Pointer(s), unsafe.Pointer(t)))
}

// CallLatest is Call for LatestData.
func CallLatest() (string, bool) {
	return take(LatestData())
}

// CallRaw passes arbitrary bytes, including invalid UTF-8, as the endpoint argument.
func CallRaw(arg []byte) (string, bool) {
	p := C.CBytes(append(append([]byte{}, arg...), 0))
	defer C.free(p)
	return take(HistoricalData(p))
}

func take(p unsafe.Pointer) (string, bool) {
	if p == nil {
		return "", false
	}
	s := C.GoString((*C.char)(p))
	Free(p)
	return s, true
}
