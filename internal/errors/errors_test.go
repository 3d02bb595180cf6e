package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{ErrCodeUnrecognizedSnapshot, CategoryIO, SeverityWarning},
		{ErrCodeNetworkUnavailable, CategoryNetwork, SeverityWarning},
		{ErrCodeInvalidPattern, CategoryValidation, SeverityInfo},
		{ErrCodeInvalidInput, CategoryValidation, SeverityInfo},
		{ErrCodeInternal, CategoryInternal, SeverityError},
		{"BAD", CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestSymdexError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := New(ErrCodeInternal, "failed", cause)

	assert.Equal(t, "[ERR_501_INTERNAL] failed", err.Error())
	assert.Same(t, cause, stderrors.Unwrap(err))
}

func TestSymdexError_IsMatchesByCode(t *testing.T) {
	// Given: an invalid-pattern error wrapped by fmt
	base := InvalidPattern("(", fmt.Errorf("missing closing )"))
	wrapped := fmt.Errorf("search: %w", base)

	// Then: errors.Is matches any error with the same code
	assert.True(t, stderrors.Is(wrapped, New(ErrCodeInvalidPattern, "", nil)))
	assert.False(t, stderrors.Is(wrapped, New(ErrCodeInvalidInput, "", nil)))
}

func TestInvalidPattern_KeepsCompilerMessage(t *testing.T) {
	err := InvalidPattern("(", fmt.Errorf("missing closing )"))

	assert.Equal(t, "invalid regex: missing closing )", err.Message)
	assert.Equal(t, "(", err.Details["pattern"])
	assert.True(t, IsValidation(err))
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NetworkError("dial", nil)))
	assert.False(t, IsRetryable(ValidationError("empty", nil)))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestGetters_PlainError(t *testing.T) {
	plain := fmt.Errorf("plain")
	assert.Empty(t, GetCode(plain))
	assert.Empty(t, GetCategory(plain))
	assert.False(t, IsFatal(plain))
}

func TestFormatForCLI(t *testing.T) {
	err := ConfigError("port out of range", nil).WithSuggestion("use 1-65535")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: port out of range")
	assert.Contains(t, out, "Hint: use 1-65535")
	assert.Contains(t, out, "Code: ERR_102_CONFIG_INVALID")
	assert.Empty(t, FormatForCLI(nil))
	assert.Contains(t, FormatForCLI(fmt.Errorf("raw")), ErrCodeInternal)
}

func TestFormatJSON(t *testing.T) {
	err := UnrecognizedSnapshot("no Modules key", fmt.Errorf("decode failed")).
		WithDetail("path", "/tmp/x.json")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ErrCodeUnrecognizedSnapshot, got["code"])
	assert.Equal(t, "IO", got["category"])
	assert.Equal(t, "decode failed", got["cause"])
	assert.Equal(t, "/tmp/x.json", got["details"].(map[string]any)["path"])
}

func TestLogAttrs(t *testing.T) {
	err := InvalidPattern("[", fmt.Errorf("missing closing ]"))

	attrs := LogAttrs(err)

	keys := make([]string, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.(slog.Attr).Key)
	}
	assert.Contains(t, keys, "error_code")
	assert.Contains(t, keys, "detail_pattern")
	assert.NotContains(t, keys, "cause")

	wrapped := LogAttrs(IOError("failed to read snapshot", fmt.Errorf("permission denied")))
	byKey := map[string]string{}
	for _, a := range wrapped {
		attr := a.(slog.Attr)
		byKey[attr.Key] = attr.Value.String()
	}
	assert.Equal(t, "permission denied", byKey["cause"])

	assert.Len(t, LogAttrs(fmt.Errorf("plain")), 1)
	assert.Nil(t, LogAttrs(nil))
}
