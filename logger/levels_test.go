package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelOrdering(t *testing.T) {
	ordered := []Level{LevelSilly, LevelDebug, LevelVerbose, LevelHTTP, LevelInfo, LevelWarn, LevelError}

	for i := 1; i < len(ordered); i++ {
		assert.Less(t, ordered[i-1], ordered[i], "%s must be below %s", ordered[i-1], ordered[i])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Level
	}{
		{name: "silly", input: "silly", want: LevelSilly},
		{name: "debug", input: "debug", want: LevelDebug},
		{name: "verbose", input: "verbose", want: LevelVerbose},
		{name: "http", input: "http", want: LevelHTTP},
		{name: "info", input: "info", want: LevelInfo},
		{name: "warn", input: "warn", want: LevelWarn},
		{name: "warning_alias", input: "warning", want: LevelWarn},
		{name: "error", input: "error", want: LevelError},
		{name: "mixed_case", input: "ERROR", want: LevelError},
		{name: "surrounding_space", input: " info ", want: LevelInfo},
		{name: "unknown_defaults_to_info", input: "catastrophic", want: LevelInfo},
		{name: "empty_defaults_to_info", input: "", want: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "http", LevelHTTP.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(99).String(), "an out-of-range level must not print as a real severity")
	assert.Equal(t, LevelInfo, ParseLevel(Level(99).String()), "the unknown rendering still parses to the info fallback")
}

func TestLevelStringRoundTrip(t *testing.T) {
	for _, level := range []Level{LevelSilly, LevelDebug, LevelVerbose, LevelHTTP, LevelInfo, LevelWarn, LevelError} {
		assert.Equal(t, level, ParseLevel(level.String()))
	}
}
