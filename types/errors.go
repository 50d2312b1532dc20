package types

import "errors"

// Error types
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error. cause may be nil.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Common error codes
const (
	ErrValidation   = "VALIDATION_ERROR"
	ErrResolution   = "RESOLUTION_ERROR"
	ErrNotFound     = "NOT_FOUND"
	ErrInvalidState = "INVALID_STATE"
	ErrExpired      = "EXPIRED"
	ErrBalanceRead  = "BALANCE_READ_ERROR"
	ErrChain        = "CHAIN_ERROR"
	ErrStore        = "STORE_ERROR"
	ErrUnavailable  = "UNAVAILABLE"
	ErrConfig       = "CONFIG_ERROR"
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
