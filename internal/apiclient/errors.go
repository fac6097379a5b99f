package apiclient

import (
	"errors"
	"fmt"
)

// ErrBodyTooLarge is carried by a DecodeError when a response exceeds the
// read limit.
var ErrBodyTooLarge = errors.New("response body too large")

var errInvalidJSON = errors.New("body is not valid JSON")

// NetworkError means no response was obtained at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError means a response arrived but its body was not the expected JSON.
type DecodeError struct {
	Op     string
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode (status %d): %v", e.Op, e.Status, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Detail is empty when the body carried none.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: api status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: api status %d: %s", e.Op, e.Status, e.Detail)
}
