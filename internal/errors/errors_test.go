package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineError_Error(t *testing.T) {
	err := New(ErrCategoryStorage, CodeUploadFailed, "upload failed")
	expected := "[STORAGE:UPLOAD_FAILED] upload failed"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestPipelineError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := Wrap(ErrCategoryInput, CodeMalformedRecord, "log_data/2018-11-01-events.json:3", cause)
	expected := "[INPUT:MALFORMED_RECORD] log_data/2018-11-01-events.json:3: unexpected end of JSON input"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryManifest, CodeWriteFailed, "insert file", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestPipelineError_Is(t *testing.T) {
	err1 := New(ErrCategoryInput, CodeNoInput, "song_data")
	err2 := New(ErrCategoryInput, CodeNoInput, "log_data")
	err3 := New(ErrCategoryInput, CodeMalformedRecord, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("read songs: %w", err1)
	if !errors.Is(wrapped, New(ErrCategoryInput, CodeNoInput, "")) {
		t.Error("wrapped error should still match via Is")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStorage, CodeUploadFailed, true},
		{ErrCategoryStorage, CodeDownloadFailed, true},
		{ErrCategoryStorage, CodeDeleteFailed, true},
		{ErrCategoryStorage, CodeObjectNotFound, false},
		{ErrCategoryStorage, CodeEncodeFailed, false},
		{ErrCategoryManifest, CodeWriteFailed, true},
		{ErrCategoryManifest, CodeRunNotFound, false},
		{ErrCategoryInput, CodeMalformedRecord, false},
		{ErrCategoryConfig, CodeMissingCredentials, false},
		{ErrCategoryTransform, CodeIDAssignment, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}

	if IsRetryable(fmt.Errorf("plain error")) {
		t.Error("plain errors are not retryable")
	}
}

func TestGetCategory(t *testing.T) {
	err := New(ErrCategoryConfig, CodeInvalidConfig, "bad timezone")
	if GetCategory(err) != ErrCategoryConfig {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryConfig)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-PipelineError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := New(ErrCategoryConfig, CodeInvalidConfig, "bad timezone")
	if GetCode(err) != CodeInvalidConfig {
		t.Errorf("got %q, want %q", GetCode(err), CodeInvalidConfig)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-PipelineError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCategoryInput, CodeMalformedRecord, "bad line")
	detailed := err.WithDetails(map[string]interface{}{"line": 7})

	if detailed.Details["line"] != 7 {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	c := NewConfigError(CodeMissingCredentials, "no keys", cause)
	if c.Category != ErrCategoryConfig || c.Code != CodeMissingCredentials {
		t.Error("NewConfigError mismatch")
	}

	in := NewInputError(CodeNoInput, "empty", nil)
	if in.Category != ErrCategoryInput || in.Cause != nil {
		t.Error("NewInputError mismatch")
	}

	tr := NewTransformError(CodeIDAssignment, "node", cause)
	if tr.Category != ErrCategoryTransform {
		t.Error("NewTransformError mismatch")
	}

	s := NewStorageError(CodeUploadFailed, "s3 down", cause)
	if s.Category != ErrCategoryStorage || !errors.Is(s, cause) {
		t.Error("NewStorageError mismatch")
	}

	m := NewManifestError(CodeWriteFailed, "locked", cause)
	if m.Category != ErrCategoryManifest {
		t.Error("NewManifestError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
