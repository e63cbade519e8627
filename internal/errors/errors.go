// Package errors provides structured error types for the trialstats pipeline.
// All errors carry a category, code and message so the batch driver can tell a
// fatal schema failure from a bad configuration or an output problem.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategorySchema   ErrorCategory = "SCHEMA"
	ErrCategoryStorage  ErrorCategory = "STORAGE"
	ErrCategoryQuery    ErrorCategory = "QUERY"
	ErrCategoryRender   ErrorCategory = "RENDER"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeUnknownTable  = "UNKNOWN_TABLE"
	CodeInvalidColumn = "INVALID_COLUMN"

	// Schema codes
	CodeColumnAddFailed  = "COLUMN_ADD_FAILED"
	CodeSchemaInspection = "SCHEMA_INSPECTION_FAILED"

	// Storage codes
	CodeOpenFailed   = "OPEN_FAILED"
	CodeCommitFailed = "COMMIT_FAILED"
	CodeUploadFailed = "UPLOAD_FAILED"
	CodeOutputFailed = "OUTPUT_FAILED"

	// Query codes
	CodeQueryFailed  = "QUERY_FAILED"
	CodeUpdateFailed = "UPDATE_FAILED"

	// Render codes
	CodeMissingScaleFactors = "MISSING_SCALE_FACTORS"
	CodeWriteFailed         = "WRITE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// TrialStatsError is the structured error type used throughout the pipeline.
type TrialStatsError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *TrialStatsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TrialStatsError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *TrialStatsError) Is(target error) bool {
	var t *TrialStatsError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new TrialStatsError.
func New(category ErrorCategory, code, message string) *TrialStatsError {
	return &TrialStatsError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new TrialStatsError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *TrialStatsError {
	return &TrialStatsError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *TrialStatsError) WithDetails(details map[string]interface{}) *TrialStatsError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsFatal reports whether the error must abort the whole batch run.
// Schema evolution has no partial-success path.
func IsFatal(err error) bool {
	return GetCategory(err) == ErrCategorySchema
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a TrialStatsError.
func GetCategory(err error) ErrorCategory {
	var te *TrialStatsError
	if errors.As(err, &te) {
		return te.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a TrialStatsError.
func GetCode(err error) string {
	var te *TrialStatsError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *TrialStatsError {
	return New(ErrCategoryConfig, code, message)
}

func NewSchemaError(code, message string, cause error) *TrialStatsError {
	return Wrap(ErrCategorySchema, code, message, cause)
}

func NewStorageError(code, message string, cause error) *TrialStatsError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewQueryError(code, message string, cause error) *TrialStatsError {
	return Wrap(ErrCategoryQuery, code, message, cause)
}

func NewRenderError(code, message string, cause error) *TrialStatsError {
	return Wrap(ErrCategoryRender, code, message, cause)
}

func NewInternalError(message string, cause error) *TrialStatsError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
