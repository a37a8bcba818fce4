package logger

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
	msg    string
}

func (e *codedError) Error() string { return e.msg }

type panicMarshaler struct{}

func (panicMarshaler) MarshalJSON() ([]byte, error) { panic("marshal me not") }

func TestNormalizeMessageForms(t *testing.T) {
	tests := []struct {
		name        string
		args        []any
		wantMessage string
	}{
		{
			name:        "no_arguments",
			args:        nil,
			wantMessage: "",
		},
		{
			name:        "string_message_verbatim",
			args:        []any{"user logged in"},
			wantMessage: "user logged in",
		},
		{
			name:        "error_message_text",
			args:        []any{errors.New("boom")},
			wantMessage: "boom",
		},
		{
			name:        "struct_serialized_to_json",
			args:        []any{struct{ ID int }{ID: 7}},
			wantMessage: `{"ID":7}`,
		},
		{
			name:        "number_serialized_to_json",
			args:        []any{42},
			wantMessage: "42",
		},
		{
			name:        "unencodable_falls_back_to_fmt",
			args:        []any{panicMarshaler{}},
			wantMessage: "{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, meta := Normalize(tt.args)
			assert.Equal(t, tt.wantMessage, message)
			assert.NotNil(t, meta)
		})
	}
}

func TestNormalizeSingleMapMerges(t *testing.T) {
	tests := []struct {
		name string
		arg  any
	}{
		{name: "fields_map", arg: Fields{"user": "ada", "attempt": 2}},
		{name: "string_any_map", arg: map[string]any{"user": "ada", "attempt": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, meta := Normalize([]any{"login", tt.arg})

			assert.Equal(t, "login", message)
			assert.Equal(t, "ada", meta["user"])
			assert.Equal(t, 2, meta["attempt"])
			assert.NotContains(t, meta, argsKey)
		})
	}
}

func TestNormalizeStringMapConverts(t *testing.T) {
	_, meta := Normalize([]any{"login", map[string]string{"region": "eu"}})

	assert.Equal(t, "eu", meta["region"])
	assert.NotContains(t, meta, argsKey)
}

func TestNormalizeTrailingArgsPreserved(t *testing.T) {
	tests := []struct {
		name     string
		args     []any
		wantLen  int
		wantHead any
	}{
		{
			name:     "two_trailing_values",
			args:     []any{"msg", "extra", 42},
			wantLen:  2,
			wantHead: "extra",
		},
		{
			name:     "single_non_map_value",
			args:     []any{"msg", 42},
			wantLen:  1,
			wantHead: 42,
		},
		{
			name:     "map_among_several_not_merged",
			args:     []any{"msg", Fields{"a": 1}, "tail"},
			wantLen:  2,
			wantHead: Fields{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, meta := Normalize(tt.args)

			extras, ok := meta[argsKey].([]any)
			require.True(t, ok, "expected %q list in metadata", argsKey)
			require.Len(t, extras, tt.wantLen)
			assert.Equal(t, tt.wantHead, extras[0])
		})
	}
}

func TestNormalizeLeadingError(t *testing.T) {
	err := pkgerrors.New("connection refused")

	message, meta := Normalize([]any{err})

	assert.Equal(t, "connection refused", message)
	errMeta, ok := meta["error"].(Fields)
	require.True(t, ok)
	assert.Equal(t, "fundamental", errMeta["name"])
	assert.Equal(t, "connection refused", errMeta["message"])
	assert.NotEmpty(t, errMeta["stack"], "pkg/errors values carry a stack")
}

func TestNormalizePlainErrorHasNoStack(t *testing.T) {
	_, meta := Normalize([]any{errors.New("plain")})

	errMeta, ok := meta["error"].(Fields)
	require.True(t, ok)
	assert.NotContains(t, errMeta, "stack")
}

func TestNormalizeStructuredErrorFields(t *testing.T) {
	err := &codedError{Code: 503, Detail: "upstream", msg: "service unavailable"}

	message, meta := Normalize([]any{err})

	assert.Equal(t, "service unavailable", message)
	errMeta, ok := meta["error"].(Fields)
	require.True(t, ok)
	assert.Equal(t, "codedError", errMeta["name"])
	assert.Equal(t, "service unavailable", errMeta["message"])
	assert.Equal(t, float64(503), errMeta["code"])
	assert.Equal(t, "upstream", errMeta["detail"])
}

func TestNormalizeTrailingErrorsExpanded(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	_, meta := Normalize([]any{"two failures", first, second})

	extras, ok := meta[argsKey].([]any)
	require.True(t, ok)
	require.Len(t, extras, 2)

	for i, want := range []string{"first", "second"} {
		expanded, ok := extras[i].(Fields)
		require.True(t, ok)
		assert.Equal(t, want, expanded["message"])
	}
}

func TestNormalizeCallerKeysWinOverErrorExpansion(t *testing.T) {
	err := errors.New("boom")

	_, meta := Normalize([]any{err, Fields{"error": "overridden"}})

	assert.Equal(t, "overridden", meta["error"])
}

func TestNormalizeIsDeterministic(t *testing.T) {
	args := []any{"msg", Fields{"a": 1, "b": "two"}}

	firstMsg, firstMeta := Normalize(args)
	secondMsg, secondMeta := Normalize(args)

	assert.Equal(t, firstMsg, secondMsg)
	assert.Equal(t, firstMeta, secondMeta)
}
