// Package envelope renders the JSON document handed back across the FFI boundary.
package envelope

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Envelope is the response document. Exactly one of Data and Error is set.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
	Interval  string `json:"interval,omitempty"`
}

// Meta describes the request an envelope answers
type Meta struct {
	Symbol    string
	Timeframe string
	Interval  string
}

// Success wraps data in a success envelope.
func Success(data any, meta Meta) Envelope {
	return Envelope{
		Success:   true,
		Data:      data,
		Symbol:    meta.Symbol,
		Timeframe: meta.Timeframe,
		Interval:  meta.Interval,
	}
}

// Failure wraps err in a failure envelope. The error text is shown to the caller as is.
func Failure(err error, meta Meta) Envelope {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Envelope{
		Success:   false,
		Error:     msg,
		Symbol:    meta.Symbol,
		Timeframe: meta.Timeframe,
		Interval:  meta.Interval,
	}
}

// Encode serialises env. A success envelope always carries a data array, even when empty.
func Encode(env Envelope) ([]byte, error) {
	if env.Success {
		env.Error = ""
		if isNil(env.Data) {
			env.Data = []struct{}{}
		}
	} else {
		env.Data = nil
	}

	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return b, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
