package endpoint

import (
	"errors"
	"fmt"
)

// ErrorKind classifies endpoint parse failures
type ErrorKind int

const (
	KindMalformed ErrorKind = iota + 1
	KindMissingField
	KindUnknownTimeframe
	KindUnsupportedResource
	KindInvalidField
)

var (
	ErrMalformed           = errors.New("malformed endpoint")
	ErrMissingField        = errors.New("missing required field")
	ErrUnknownTimeframe    = errors.New("unknown timeframe")
	ErrUnsupportedResource = errors.New("unsupported endpoint resource")
	ErrInvalidField        = errors.New("invalid field")
)

// ParseError reports why an endpoint string was rejected
type ParseError struct {
	Kind   ErrorKind
	Field  string
	Token  string
	Detail string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing required field %q", e.Field)
	case KindUnknownTimeframe:
		return fmt.Sprintf("unknown timeframe %q", e.Token)
	case KindUnsupportedResource:
		return fmt.Sprintf("unsupported endpoint resource %q", e.Token)
	case KindInvalidField:
		return fmt.Sprintf("invalid value %q for field %q", e.Token, e.Field)
	default:
		return "malformed endpoint: " + e.Detail
	}
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case KindMissingField:
		return ErrMissingField
	case KindUnknownTimeframe:
		return ErrUnknownTimeframe
	case KindUnsupportedResource:
		return ErrUnsupportedResource
	case KindInvalidField:
		return ErrInvalidField
	default:
		return ErrMalformed
	}
}
