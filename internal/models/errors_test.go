package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodesStable(t *testing.T) {
	// the numeric values are a wire contract
	assert.Equal(t, 401, ErrAuthorizationFail().Code)
	assert.Equal(t, 511, ErrNonExistUser("u").Code)
	assert.Equal(t, 513, ErrNonExistStore("s").Code)
	assert.Equal(t, 515, ErrNonExistBook("b").Code)
	assert.Equal(t, 517, ErrStockLevelLow("b").Code)
	assert.Equal(t, 518, ErrInvalidOrderOp("o").Code)
	assert.Equal(t, 519, ErrNotSufficientFunds("o").Code)
	assert.Equal(t, 521, ErrOrderNotFound("o").Code)
	assert.Equal(t, 528, ErrStorage(errors.New("down")).Code)
}

func TestErrorMessagesCarryIdentifiers(t *testing.T) {
	assert.Contains(t, ErrNonExistUser("alice").Message, "alice")
	assert.Contains(t, ErrStockLevelLow("bk-1").Message, "bk-1")
	assert.Contains(t, ErrNotSufficientFunds("ord-9").Message, "ord-9")
}

func TestAsError(t *testing.T) {
	domain := ErrNonExistBook("bk")
	assert.Same(t, domain, AsError(domain))

	wrapped := fmt.Errorf("reserve: %w", domain)
	assert.Equal(t, CodeNonExistBook, AsError(wrapped).Code)
	assert.Equal(t, CodeNonExistBook, CodeOf(wrapped))

	// unknown errors surface as storage faults, never raw
	infra := errors.New("connection reset")
	assert.Equal(t, CodeStorageError, AsError(infra).Code)
}

func TestIllegalTransitionUsesInvalidOrderCode(t *testing.T) {
	err := ErrIllegalTransition("ord-1", StatusShipped)
	assert.Equal(t, CodeInvalidOrderOp, err.Code)
	assert.Contains(t, err.Message, "shipped")
}
