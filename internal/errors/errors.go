// Package errors provides the domain error types shared by the store, the
// price fetcher and position validation.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrDataUnavailable  = errors.New("price data unavailable")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrPositionNotFound = errors.New("position not found")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrStore            = errors.New("store failure")
)

// ValidationError is one field of a position that failed validation. It
// matches ErrInvalidPosition under errors.Is.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPosition }

// DataError means no usable prices for Symbol. Kind names the request:
// "history", "quote" or "health". It matches ErrDataUnavailable and the cause.
type DataError struct {
	Kind   string
	Symbol string
	Reason string
	Err    error
}

func NewDataError(kind, symbol, reason string, err error) *DataError {
	return &DataError{Kind: kind, Symbol: symbol, Reason: reason, Err: err}
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Kind, e.Symbol, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDataUnavailable}
	}
	return []error{ErrDataUnavailable, e.Err}
}

// StoreError wraps a persistence failure with the operation that hit it. It
// matches ErrStore and the cause, so ErrPositionNotFound survives wrapping.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// IsInvalidPosition reports whether err came from position validation.
func IsInvalidPosition(err error) bool {
	return errors.Is(err, ErrInvalidPosition)
}

// IsNotFound reports whether err means the position does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPositionNotFound)
}
