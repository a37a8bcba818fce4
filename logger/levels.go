package logger

import "strings"

// Level is a log severity. Higher values are more severe; a logger accepts a
// call when the call's level is at or above the logger's threshold.
type Level int8

const (
	LevelSilly Level = iota
	LevelDebug
	LevelVerbose
	LevelHTTP
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelSilly:   "silly",
	LevelDebug:   "debug",
	LevelVerbose: "verbose",
	LevelHTTP:    "http",
	LevelInfo:    "info",
	LevelWarn:    "warn",
	LevelError:   "error",
}

// String returns the canonical lowercase level name. Out-of-range values
// render as "unknown" so a corrupted level is visible on the wire instead of
// masquerading as a real severity.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLevel resolves a level name case-insensitively, accepting "warning" as
// an alias of "warn". Unrecognized input falls back to LevelInfo rather than
// failing; the config layer reports the degradation separately.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silly":
		return LevelSilly
	case "debug":
		return LevelDebug
	case "verbose":
		return LevelVerbose
	case "http":
		return LevelHTTP
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
