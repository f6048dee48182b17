// Package errors provides a lightweight structured error type (KeeperError)
// for category-based classification and retry semantics in the CLI and the
// authoring server.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a blogkeeper error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Content and repository errors
	CategoryContent    ErrorCategory = "content"
	CategoryLint       ErrorCategory = "lint"
	CategoryGit        ErrorCategory = "git"
	CategoryFileSystem ErrorCategory = "filesystem"

	// External system and infrastructure errors
	CategoryNetwork  ErrorCategory = "network"
	CategoryIndex    ErrorCategory = "index"
	CategoryServer   ErrorCategory = "server"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// KeeperError is a structured error with category, retryability, and context
type KeeperError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for KeeperError
type ContextFields map[string]any

// Error implements the error interface
func (e *KeeperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *KeeperError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *KeeperError) WithContext(key string, value any) *KeeperError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new KeeperError
func New(category ErrorCategory, severity ErrorSeverity, message string) *KeeperError {
	return &KeeperError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new KeeperError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *KeeperError {
	return &KeeperError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// Retryable creates a new retryable KeeperError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *KeeperError {
	return &KeeperError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable KeeperError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *KeeperError {
	return &KeeperError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if ke, ok := err.(*KeeperError); ok {
		return ke.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if ke, ok := err.(*KeeperError); ok {
		return ke.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a KeeperError
func GetCategory(err error) ErrorCategory {
	if ke, ok := err.(*KeeperError); ok {
		return ke.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error (invalid usage)
func ValidationError(message string) *KeeperError {
	return &KeeperError{
		Category:  CategoryValidation,
		Severity:  SeverityWarning,
		Message:   message,
		Retryable: false,
	}
}

// ConfigError creates a new configuration error
func ConfigError(message string) *KeeperError {
	return &KeeperError{
		Category:  CategoryConfig,
		Severity:  SeverityError,
		Message:   message,
		Retryable: false,
	}
}

// WrapError wraps an existing error with a new KeeperError at error severity
func WrapError(err error, category ErrorCategory, message string) *KeeperError {
	return &KeeperError{
		Category:  category,
		Severity:  SeverityError,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}
