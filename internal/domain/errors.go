// Package domain defines core types, interfaces, and errors for the query monitor.
package domain

import "fmt"

// ConfigurationError indicates a required credential or connection field is
// missing after all configuration sources were merged. Fatal at startup.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// ConnectionError indicates the warehouse could not be reached.
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string { return e.Message }

func (e *ConnectionError) Unwrap() error { return e.Cause }

// InvalidSelectionError indicates a filter selection the requested view
// cannot work with (e.g. the live view needs exactly one warehouse).
type InvalidSelectionError struct {
	Message string
}

func (e *InvalidSelectionError) Error() string { return e.Message }

// QueryExecutionError indicates a statement failed on the warehouse side.
// The underlying driver message is preserved for display.
type QueryExecutionError struct {
	Message string
	Cause   error
}

func (e *QueryExecutionError) Error() string { return e.Message }

func (e *QueryExecutionError) Unwrap() error { return e.Cause }

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConnection creates a ConnectionError wrapping the underlying cause.
func ErrConnection(cause error, format string, args ...interface{}) *ConnectionError {
	return &ConnectionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrInvalidSelection creates an InvalidSelectionError with a formatted message.
func ErrInvalidSelection(format string, args ...interface{}) *InvalidSelectionError {
	return &InvalidSelectionError{Message: fmt.Sprintf(format, args...)}
}

// ErrQueryExecution creates a QueryExecutionError wrapping the underlying cause.
func ErrQueryExecution(cause error, format string, args ...interface{}) *QueryExecutionError {
	return &QueryExecutionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}
