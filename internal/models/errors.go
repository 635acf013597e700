package models

import (
	"errors"
	"fmt"
)

// Error codes form a closed taxonomy shared with API clients.
// The numeric values are a stable contract and must not be renumbered.
const (
	CodeOK                = 200
	CodeAuthorizationFail = 401
	CodeNonExistUser      = 511
	CodeExistUser         = 512
	CodeNonExistStore     = 513
	CodeExistStore        = 514
	CodeNonExistBook      = 515
	CodeExistBook         = 516
	CodeStockLevelLow     = 517
	CodeInvalidOrderOp    = 518
	CodeInsufficientFunds = 519
	CodeOrderAlreadyPaid  = 520
	CodeOrderNotFound     = 521
	CodeOrderCancelled    = 522
	CodeOrderShipped      = 523
	CodeOrderReceived     = 524
	CodeInvalidParameter  = 525
	CodeSearchFailed      = 526
	CodePaginationError   = 527
	CodeStorageError      = 528
)

// Error is a domain failure with a wire-stable code
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// AsError unwraps err into a domain *Error; unknown errors are
// reported as storage errors so infra faults never leak raw to clients
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return ErrStorage(err)
}

// CodeOf returns the domain code of err
func CodeOf(err error) int {
	return AsError(err).Code
}

func ErrAuthorizationFail() *Error {
	return &Error{Code: CodeAuthorizationFail, Message: "authorization fail"}
}

func ErrNonExistUser(userID string) *Error {
	return &Error{Code: CodeNonExistUser, Message: fmt.Sprintf("non exist user id %s", userID)}
}

func ErrExistUser(userID string) *Error {
	return &Error{Code: CodeExistUser, Message: fmt.Sprintf("exist user id %s", userID)}
}

func ErrNonExistStore(storeID string) *Error {
	return &Error{Code: CodeNonExistStore, Message: fmt.Sprintf("non exist store id %s", storeID)}
}

func ErrExistStore(storeID string) *Error {
	return &Error{Code: CodeExistStore, Message: fmt.Sprintf("exist store id %s", storeID)}
}

func ErrNonExistBook(bookID string) *Error {
	return &Error{Code: CodeNonExistBook, Message: fmt.Sprintf("non exist book id %s", bookID)}
}

func ErrExistBook(bookID string) *Error {
	return &Error{Code: CodeExistBook, Message: fmt.Sprintf("exist book id %s", bookID)}
}

func ErrStockLevelLow(bookID string) *Error {
	return &Error{Code: CodeStockLevelLow, Message: fmt.Sprintf("stock level low, book id %s", bookID)}
}

func ErrInvalidOrderOp(orderID string) *Error {
	return &Error{Code: CodeInvalidOrderOp, Message: fmt.Sprintf("invalid order id %s", orderID)}
}

// ErrIllegalTransition reports a state-machine operation attempted on an
// order whose current status does not allow it
func ErrIllegalTransition(orderID string, current Status) *Error {
	return &Error{
		Code:    CodeInvalidOrderOp,
		Message: fmt.Sprintf("illegal operation on order %s in status %s", orderID, current),
	}
}

func ErrNotSufficientFunds(orderID string) *Error {
	return &Error{Code: CodeInsufficientFunds, Message: fmt.Sprintf("not sufficient funds, order id %s", orderID)}
}

func ErrOrderNotFound(orderID string) *Error {
	return &Error{Code: CodeOrderNotFound, Message: fmt.Sprintf("order not found %s", orderID)}
}

func ErrInvalidParameter(name string) *Error {
	return &Error{Code: CodeInvalidParameter, Message: fmt.Sprintf("invalid parameter %s", name)}
}

func ErrSearchFailed(detail string) *Error {
	return &Error{Code: CodeSearchFailed, Message: fmt.Sprintf("search failed: %s", detail)}
}

func ErrPagination(detail string) *Error {
	return &Error{Code: CodePaginationError, Message: fmt.Sprintf("pagination error: %s", detail)}
}

func ErrStorage(cause error) *Error {
	return &Error{Code: CodeStorageError, Message: fmt.Sprintf("database error: %v", cause)}
}
