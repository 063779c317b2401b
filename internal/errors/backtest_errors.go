package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies failures of a backtest run
type ErrorCategory string

const (
	// Fatal to the run that raised it, never retried
	ErrorCategoryDataUnavailable ErrorCategory = "DATA_UNAVAILABLE"
	ErrorCategoryConfiguration   ErrorCategory = "CONFIG_INVALID"

	// Local to a single signal, the run continues
	ErrorCategoryOrderRejected ErrorCategory = "ORDER_REJECTED"
)

// BacktestError represents a categorized error with context
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	prefix := fmt.Sprintf("[%s", e.Category)
	if e.Component != "" {
		prefix += ":" + e.Component
	}
	prefix += "]"
	msg := e.Message
	if e.Operation != "" {
		msg = fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s %s: %v", prefix, msg, e.Underlying)
	}
	return fmt.Sprintf("%s %s", prefix, msg)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// Is matches any BacktestError of the same category, so the package
// sentinels work with errors.Is.
func (e *BacktestError) Is(target error) bool {
	t, ok := target.(*BacktestError)
	if !ok {
		return false
	}
	return e.Category == t.Category
}

// IsFatal reports whether the error should abort the run
func (e *BacktestError) IsFatal() bool {
	return e.Category != ErrorCategoryOrderRejected
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Sentinels for errors.Is
var (
	ErrDataUnavailable = &BacktestError{Category: ErrorCategoryDataUnavailable, Message: "no bars for requested range"}
	ErrOrderRejected   = &BacktestError{Category: ErrorCategoryOrderRejected, Message: "order rejected"}
	ErrConfigInvalid   = &BacktestError{Category: ErrorCategoryConfiguration, Message: "configuration invalid"}
)

// New creates a new categorized error
func New(category ErrorCategory, component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// Wrap wraps an existing error with category context. Returns nil for a nil error.
func Wrap(err error, category ErrorCategory, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}
	return &BacktestError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
	}
}

// DataUnavailable builds a DATA_UNAVAILABLE error for a symbol/range request
func DataUnavailable(component, symbol string, detail string) *BacktestError {
	return New(ErrorCategoryDataUnavailable, component, "get_bars", detail).
		WithContext("symbol", symbol)
}

// ConfigInvalid builds a CONFIG_INVALID error; format follows fmt.Sprintf.
func ConfigInvalid(component, format string, args ...interface{}) *BacktestError {
	return New(ErrorCategoryConfiguration, component, "validate", fmt.Sprintf(format, args...))
}

// OrderRejected builds an ORDER_REJECTED error
func OrderRejected(component, format string, args ...interface{}) *BacktestError {
	return New(ErrorCategoryOrderRejected, component, "submit", fmt.Sprintf(format, args...))
}

// CategoryOf returns the category of err, or "" if it is not a BacktestError
func CategoryOf(err error) ErrorCategory {
	var be *BacktestError
	if stderrors.As(err, &be) {
		return be.Category
	}
	return ""
}
