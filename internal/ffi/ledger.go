package ffi

import "sync"

// ledger records buffers handed to the caller and not yet released.
var ledger = struct {
	sync.Mutex
	live map[uintptr]struct{}
}{live: make(map[uintptr]struct{})}

func track(p uintptr) {
	ledger.Lock()
	ledger.live[p] = struct{}{}
	ledger.Unlock()
}

func release(p uintptr) bool {
	ledger.Lock()
	defer ledger.Unlock()
	if _, ok := ledger.live[p]; !ok {
		return false
	}
	delete(ledger.live, p)
	return true
}

// Outstanding reports how many returned buffers have not been freed yet.
func Outstanding() int {
	ledger.Lock()
	defer ledger.Unlock()
	return len(ledger.live)
}
