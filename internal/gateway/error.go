package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrAuth            = errors.New("gateway authentication failed")
	ErrEmptyAccount    = errors.New("account number is empty")
	ErrEmptyExternalID = errors.New("external id is empty")
	ErrBreakerOpen     = errors.New("gateway circuit open")
)

// NetworkError is a transport-level failure: the request never produced a
// readable gateway response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PaymentError carries the gateway's human-readable rejection message.
type PaymentError struct {
	Message string
}

func (e *PaymentError) Error() string { return e.Message }
