// Package usererr defines errors caused by the caller's input or by the
// on-chain state the caller asked to act on, as opposed to infrastructure failures.
package usererr

import (
	"errors"
	"fmt"
)

type Code string

const (
	InsufficientEtherBalance Code = "InsufficientEtherBalance"
	InsufficientTokenBalance Code = "InsufficientTokenBalance"
	InvalidContractState     Code = "InvalidContractState"
	ContractNotFound         Code = "ContractNotFound"
	Unauthorized             Code = "Unauthorized"
	InvalidData              Code = "InvalidData"
	TransactionFailed        Code = "TransactionFailed"
	NotInitialized           Code = "NotInitialized"
	AlreadyInitialized       Code = "AlreadyInitialized"
	NoEthereumClient         Code = "NoEthereumClient"
	NoAccounts               Code = "NoAccounts"
	WrongNetwork             Code = "WrongNetwork"
	InvalidEthereumAddress   Code = "InvalidEthereumAddress"
)

type UserError struct {
	Code    Code
	Message string
	Source  error
}

func New(code Code, format string, args ...interface{}) *UserError {
	return &UserError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches the code and message to a lower level cause
func Wrap(source error, code Code, format string, args ...interface{}) *UserError {
	return &UserError{Code: code, Message: fmt.Sprintf(format, args...), Source: source}
}

func (e *UserError) Error() string {
	if e.Source == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Source)
}

func (e *UserError) Unwrap() error {
	return e.Source
}

// Is matches any UserError carrying the same code, so codes can be
// compared with errors.Is(err, &UserError{Code: c})
func (e *UserError) Is(target error) bool {
	t, ok := target.(*UserError)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the outermost UserError in the chain
func CodeOf(err error) (Code, bool) {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Code, true
	}
	return "", false
}

func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
