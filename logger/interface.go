// Package logger implements a leveled logging facade for service
// applications. Every accepted call is written synchronously to the console
// and forwarded asynchronously, best effort, to a configured sink.
package logger

import (
	"context"
	"time"
)

// Fields is the string-keyed metadata map attached to every log record.
type Fields map[string]any

// Record is the normalized form of a single log call as handed to a Sink.
// Records are constructed per call and never retained by the logger.
type Record struct {
	Time    time.Time
	Level   Level
	Message string
	Meta    Fields
}

// Sink is a destination for normalized log records. Submit may fail;
// failures are caught by the dispatcher and reported diagnostically, never
// propagated to application code. Drain resolves once buffered records have
// been delivered and must honor the context deadline.
type Sink interface {
	Submit(ctx context.Context, rec Record) error
	Drain(ctx context.Context) error
	Close() error
}

// Logger defines the leveled logging contract. All methods accept the same
// variadic argument list, reduced deterministically to a message plus
// metadata: a leading error or non-string is serialized into the message, a
// single trailing map merges into the metadata, and any other trailing
// arguments are preserved under an "args" key.
type Logger interface {
	Silly(args ...any)
	Debug(args ...any)
	Verbose(args ...any)
	HTTP(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	// Log is an alias for Info.
	Log(args ...any)
	// With returns a derived logger that merges ctx into the metadata of
	// every subsequent call. The receiver is not modified.
	With(ctx Fields) Logger
	// SetLevel changes the minimum severity threshold for subsequent calls.
	SetLevel(level Level)
	// Flush waits up to timeout for outstanding sink submissions to settle.
	// It always returns; a timeout is reported diagnostically, not as an
	// error.
	Flush(timeout time.Duration)
}
