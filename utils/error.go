package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies every failure returned by the ledger engine.
type ErrorKind string

const (
	KindValidation   ErrorKind = "ValidationError"
	KindNotFound     ErrorKind = "NotFoundError"
	KindBusinessRule ErrorKind = "BusinessRuleViolation"
	KindConflict     ErrorKind = "ConflictError"
	KindStore        ErrorKind = "StoreError"
)

// Business rule codes.
const (
	CodeInsufficientStock            = "InsufficientStock"
	CodeInsufficientCapital          = "InsufficientCapital"
	CodeInsufficientRetainedEarnings = "InsufficientRetainedEarnings"
	CodeAlreadyReversed              = "AlreadyReversed"
	CodeSellingPriceBelowCost        = "SellingPriceBelowCost"
	CodeStockLimitExceeded           = "StockLimitExceeded"
)

type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if e.Code != "" {
			msg = e.Code
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Code when the target carries one, so the
// sentinels below work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrValidation   = &AppError{Kind: KindValidation}
	ErrNotFound     = &AppError{Kind: KindNotFound}
	ErrBusinessRule = &AppError{Kind: KindBusinessRule}
	ErrConflict     = &AppError{Kind: KindConflict}
	ErrStore        = &AppError{Kind: KindStore}

	ErrInsufficientStock            = &AppError{Kind: KindBusinessRule, Code: CodeInsufficientStock}
	ErrInsufficientCapital          = &AppError{Kind: KindBusinessRule, Code: CodeInsufficientCapital}
	ErrInsufficientRetainedEarnings = &AppError{Kind: KindBusinessRule, Code: CodeInsufficientRetainedEarnings}
	ErrAlreadyReversed              = &AppError{Kind: KindBusinessRule, Code: CodeAlreadyReversed}
	ErrSellingPriceBelowCost        = &AppError{Kind: KindBusinessRule, Code: CodeSellingPriceBelowCost}
	ErrStockLimitExceeded           = &AppError{Kind: KindBusinessRule, Code: CodeStockLimitExceeded}
)

func NewValidationError(format string, args ...any) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(entity string, id any) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id), Err: ErrorRecordNotFound}
}

func NewBusinessRuleError(code string, format string, args ...any) *AppError {
	return &AppError{Kind: KindBusinessRule, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewStoreError(err error, context string) *AppError {
	return &AppError{Kind: KindStore, Message: context, Err: err}
}

// AsAppError wraps anything that is not already an *AppError as a StoreError.
func AsAppError(err error, context string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewStoreError(err, context)
}

func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Code != "" {
			return appErr.Code
		}
		return string(appErr.Kind)
	}
	return string(KindStore)
}
