package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestTrialStatsError_Error(t *testing.T) {
	err := New(ErrCategoryConfig, CodeInvalidConfig, "bad table")
	expected := "[CONFIG:INVALID_CONFIG] bad table"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestTrialStatsError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := Wrap(ErrCategorySchema, CodeColumnAddFailed, "add column TermsStd", cause)
	expected := "[SCHEMA:COLUMN_ADD_FAILED] add column TermsStd: database is locked"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestTrialStatsError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryQuery, CodeQueryFailed, "group statistics", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestTrialStatsError_Is(t *testing.T) {
	err1 := New(ErrCategoryStorage, CodeOpenFailed, "first")
	err2 := New(ErrCategoryStorage, CodeOpenFailed, "second")
	err3 := New(ErrCategoryStorage, CodeCommitFailed, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err   error
		fatal bool
	}{
		{NewSchemaError(CodeColumnAddFailed, "alter", nil), true},
		{NewSchemaError(CodeSchemaInspection, "pragma", nil), true},
		{NewQueryError(CodeQueryFailed, "select", nil), false},
		{NewConfigError(CodeUnknownTable, "nope"), false},
		{fmt.Errorf("wrapped: %w", NewSchemaError(CodeColumnAddFailed, "alter", nil)), true},
		{fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		if IsFatal(tt.err) != tt.fatal {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.err, IsFatal(tt.err), tt.fatal)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewRenderError(CodeWriteFailed, "flush", nil))
	if GetCategory(err) != ErrCategoryRender {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryRender)
	}
	if GetCode(err) != CodeWriteFailed {
		t.Errorf("got %q, want %q", GetCode(err), CodeWriteFailed)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-TrialStatsError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-TrialStatsError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	base := New(ErrCategoryQuery, CodeUpdateFailed, "update std columns")
	detailed := base.WithDetails(map[string]interface{}{"benchmark": "cube"})

	if base.Details != nil {
		t.Error("WithDetails must not modify the original error")
	}
	if detailed.Details["benchmark"] != "cube" {
		t.Errorf("expected benchmark detail, got %v", detailed.Details)
	}
	if !errors.Is(detailed, base) {
		t.Error("detailed copy should still match the original category+code")
	}
}
