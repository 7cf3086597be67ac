package types

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrNetworkError       = "NETWORK_ERROR"
	ErrFormatError        = "FORMAT_ERROR"
	ErrCryptoError        = "CRYPTO_ERROR"
	ErrTimeoutError       = "TIMEOUT_ERROR"
	ErrInvalidTransaction = "INVALID_TRANSACTION"
	ErrConfigError        = "CONFIG_ERROR"
)

// CircularError is the error type returned by every package of this module
type CircularError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *CircularError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CircularError) Unwrap() error {
	return e.Err
}

// Is matches any *CircularError carrying the same code, so callers can write
// errors.Is(err, &types.CircularError{Code: types.ErrTimeoutError}).
func (e *CircularError) Is(target error) bool {
	t, ok := target.(*CircularError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code, message string, err error) *CircularError {
	return &CircularError{Code: code, Message: message, Err: err}
}

func NewNetworkError(message string, err error) *CircularError {
	return newError(ErrNetworkError, message, err)
}

func NewFormatError(message string, err error) *CircularError {
	return newError(ErrFormatError, message, err)
}

func NewCryptoError(message string, err error) *CircularError {
	return newError(ErrCryptoError, message, err)
}

func NewTimeoutError(message string) *CircularError {
	return newError(ErrTimeoutError, message, nil)
}

func NewInvalidTransactionError(message string) *CircularError {
	return newError(ErrInvalidTransaction, message, nil)
}

func NewConfigError(message string, err error) *CircularError {
	return newError(ErrConfigError, message, err)
}

// CodeOf returns the code of the first CircularError in err's chain, or ""
func CodeOf(err error) string {
	var ce *CircularError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func IsNetworkError(err error) bool { return CodeOf(err) == ErrNetworkError }
func IsFormatError(err error) bool  { return CodeOf(err) == ErrFormatError }
func IsCryptoError(err error) bool  { return CodeOf(err) == ErrCryptoError }
func IsTimeoutError(err error) bool { return CodeOf(err) == ErrTimeoutError }
