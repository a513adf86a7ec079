package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("refresh: %w", NewDataError("history", "TCS.NS", "yahoo request failed", cause))

	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "refresh: history TCS.NS: yahoo request failed: connection reset")

	var derr *DataError
	assert.True(t, errors.As(err, &derr))
	assert.Equal(t, "TCS.NS", derr.Symbol)

	assert.EqualError(t, NewDataError("quote", "INFY.NS", "no price available", nil), "quote INFY.NS: no price available")
}

func TestStoreError_KeepsNotFound(t *testing.T) {
	err := NewStoreError("close position", fmt.Errorf("position 7: %w", ErrPositionNotFound))

	assert.ErrorIs(t, err, ErrStore)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsInvalidPosition(err))
	assert.EqualError(t, err, "close position: position 7: position not found")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("stop_loss", 105.0, "must be below entry for LONG")
	assert.True(t, IsInvalidPosition(err))
	assert.EqualError(t, err, "stop_loss 105: must be below entry for LONG")
}
