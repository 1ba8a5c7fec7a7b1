// Package errors provides standardized error values for dwarfgen
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryContract   ErrorCategory = "CONTRACT"
	CategoryInput      ErrorCategory = "INPUT"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategorySystem     ErrorCategory = "SYSTEM"
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// Is matches on category and code so sentinels can be compared with errors.Is.
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if !errors.As(target, &t) {
		return false
	}
	return t.Category == e.Category && t.Code == e.Code
}

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	return newStandardError(2, category, code, message, context)
}

func newStandardError(skip int, category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(skip)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrUnitClosed     = &StandardError{Category: CategoryContract, Code: "UNIT_NOT_OPEN"}
	ErrMissingEntry   = &StandardError{Category: CategoryContract, Code: "MISSING_ENTRY"}
	ErrMalformedScope = &StandardError{Category: CategoryContract, Code: "MALFORMED_SCOPE"}
	ErrFormOverflow   = &StandardError{Category: CategoryContract, Code: "FORM_OVERFLOW"}
	ErrInvalidInput   = &StandardError{Category: CategoryInput, Code: "INVALID_INPUT"}
	ErrEncode         = &StandardError{Category: CategoryValidation, Code: "ENCODE_FAILED"}
)

// Common error constructors
func UnitNotOpen(unit uint, state, operation string) *StandardError {
	return newStandardError(3, CategoryContract, "UNIT_NOT_OPEN",
		fmt.Sprintf("unit %d is %s; %s requires an open unit", unit, state, operation),
		map[string]interface{}{"unit": unit, "state": state, "operation": operation})
}

func MissingEntry(node uint32, operation string) *StandardError {
	return newStandardError(3, CategoryContract, "MISSING_ENTRY",
		fmt.Sprintf("no entry was inserted for node %d (%s)", node, operation),
		map[string]interface{}{"node": node, "operation": operation})
}

func MalformedScope(node uint32, kind string) *StandardError {
	return newStandardError(3, CategoryContract, "MALFORMED_SCOPE",
		fmt.Sprintf("scope node %d of kind %s has no context entry", node, kind),
		map[string]interface{}{"node": node, "kind": kind})
}

func FormOverflow(form string, value uint64) *StandardError {
	return newStandardError(3, CategoryContract, "FORM_OVERFLOW",
		fmt.Sprintf("value %#x does not fit form %s", value, form),
		map[string]interface{}{"form": form, "value": value})
}

func InvalidInput(source, details string) *StandardError {
	return newStandardError(2, CategoryInput, "INVALID_INPUT",
		fmt.Sprintf("invalid input %s: %s", source, details),
		map[string]interface{}{"source": source, "details": details})
}

func EncodeFailed(section, details string) *StandardError {
	return newStandardError(2, CategoryValidation, "ENCODE_FAILED",
		fmt.Sprintf("encoding %s: %s", section, details),
		map[string]interface{}{"section": section, "details": details})
}
