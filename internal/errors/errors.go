// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoPriceData       = errors.New("no price data available")
	ErrInvalidTicker     = errors.New("invalid ticker")
	ErrMissingAPIKey     = errors.New("api key not configured")
	ErrBridgeNotReady    = errors.New("whatsapp bridge not ready")
	ErrBridgeUnavailable = errors.New("whatsapp bridge unavailable")
	ErrCacheMiss         = errors.New("cache miss")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrLLMEmpty          = errors.New("empty response from model")
	ErrRateLimited       = errors.New("rate limited")
	ErrTimeout           = errors.New("operation timed out")
	ErrDatabaseError     = errors.New("database error")
)

// DataError represents a failure fetching or decoding market data.
type DataError struct {
	Source  string
	Ticker  string
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.Source, e.Ticker, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.Source, e.Ticker, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(source, ticker, message string, err error) *DataError {
	return &DataError{
		Source:  source,
		Ticker:  ticker,
		Message: message,
		Err:     err,
	}
}

// AgentError represents an error from an AI agent.
type AgentError struct {
	AgentName string
	Operation string
	Err       error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent error [%s] %s: %v", e.AgentName, e.Operation, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError.
func NewAgentError(agentName, operation string, err error) *AgentError {
	return &AgentError{
		AgentName: agentName,
		Operation: operation,
		Err:       err,
	}
}

// BridgeError is a non-success response from the WhatsApp bridge.
type BridgeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge error [%d]: %s: %v", e.StatusCode, e.Body, e.Err)
	}
	return fmt.Sprintf("bridge error [%d]: %s", e.StatusCode, e.Body)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// NewBridgeError creates a new BridgeError. A 503 unwraps to ErrBridgeNotReady.
func NewBridgeError(statusCode int, body string) *BridgeError {
	var err error
	if statusCode == 503 {
		err = ErrBridgeNotReady
	}
	return &BridgeError{
		StatusCode: statusCode,
		Body:       body,
		Err:        err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
