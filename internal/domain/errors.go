package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Contract result codes.
const (
	CodeSuccess = 2000

	CodeNumberError  = 3001
	CodeConflict     = 3002
	CodeParseError   = 3003
	CodeStoreError   = 3004
	CodeNotFound     = 3005
	CodeTypeMismatch = 3006
	CodeNotOwner     = 3007
	CodeNotExist     = 3008

	CodeServiceInit     = 4001
	CodeServiceIdentity = 4002
	CodeServiceLock     = 4003
)

var codeNames = map[int]string{
	CodeNumberError:     "number-error",
	CodeConflict:        "conflict",
	CodeParseError:      "parse-error",
	CodeStoreError:      "store-error",
	CodeNotFound:        "not-found",
	CodeTypeMismatch:    "type-mismatch",
	CodeNotOwner:        "not-owner",
	CodeNotExist:        "not-exist",
	CodeServiceInit:     "service-init",
	CodeServiceIdentity: "service-identity",
	CodeServiceLock:     "service-lock",
}

// ContractError is the structured failure returned by every ledger entry point.
type ContractError struct {
	Code int    `json:"contract_code"`
	Msg  string `json:"contract_msg"`
}

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrNumber          = &ContractError{Code: CodeNumberError, Msg: "invalid or insufficient quantity"}
	ErrConflict        = &ContractError{Code: CodeConflict, Msg: "key already used"}
	ErrParse           = &ContractError{Code: CodeParseError, Msg: "malformed payload"}
	ErrStore           = &ContractError{Code: CodeStoreError, Msg: "ledger store failure"}
	ErrNotFound        = &ContractError{Code: CodeNotFound, Msg: "required field missing"}
	ErrTypeMismatch    = &ContractError{Code: CodeTypeMismatch, Msg: "structure mismatch"}
	ErrNotOwner        = &ContractError{Code: CodeNotOwner, Msg: "not the owner"}
	ErrNotExist        = &ContractError{Code: CodeNotExist, Msg: "record does not exist"}
	ErrServiceInit     = &ContractError{Code: CodeServiceInit, Msg: "contract not initialized"}
	ErrServiceIdentity = &ContractError{Code: CodeServiceIdentity, Msg: "caller not authorized"}
	ErrServiceLock     = &ContractError{Code: CodeServiceLock, Msg: "contract locked"}
)

// Errorf builds a ContractError with a formatted message.
func Errorf(code int, format string, args ...any) *ContractError {
	return &ContractError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func (e *ContractError) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("contract error %d: %s", e.Code, e.Msg)
	}
	return string(b)
}

func (e *ContractError) Is(target error) bool {
	t, ok := target.(*ContractError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Name returns the slug used in problem types and metric labels.
func (e *ContractError) Name() string {
	if n, ok := codeNames[e.Code]; ok {
		return n
	}
	return "unknown"
}

// CodeOf returns the contract code carried by err, CodeSuccess for nil and
// CodeStoreError for foreign errors.
func CodeOf(err error) int {
	if err == nil {
		return CodeSuccess
	}
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeStoreError
}

// AsContractError converts any error into a ContractError, classifying
// unknown failures as store errors.
func AsContractError(err error) *ContractError {
	if err == nil {
		return nil
	}
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce
	}
	return Errorf(CodeStoreError, "%v", err)
}
