package logger

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	// timestampKey is the delivery-timestamp metadata key added to every
	// record handed to a sink.
	timestampKey = "dt"

	defaultSubmitTimeout = 10 * time.Second
	pendingPollInterval  = 5 * time.Millisecond
)

// Identity is the {service, environment, version} triple identifying the
// emitting application instance. It is fixed at construction time.
type Identity struct {
	Service     string
	Environment string
	Version     string
}

// Options configures a ShipLogger. The zero value yields a console-only
// logger writing to stdout with no minimum threshold; the config package is
// responsible for applying environment and hard-coded defaults.
type Options struct {
	Identity Identity
	MinLevel Level
	// Pretty enables human-oriented console formatting instead of JSON
	// lines.
	Pretty bool
	// Sink receives every accepted record asynchronously. Nil disables
	// forwarding entirely.
	Sink Sink
	// ConsoleOut defaults to os.Stdout, DiagOut to os.Stderr. DiagOut
	// carries the facade's own diagnostics (delivery failures, flush
	// timeouts) and is kept separate from application log lines.
	ConsoleOut io.Writer
	DiagOut    io.Writer
	// SubmitTimeout bounds each individual sink submission.
	SubmitTimeout time.Duration
}

// ShipLogger is the concrete Logger. It owns a console writer, an optional
// sink and the bookkeeping needed to drain outstanding submissions on
// shutdown. Derived loggers produced by With share the sink, the submission
// tracker and the diagnostic writer by reference; everything else is copied.
type ShipLogger struct {
	console  zerolog.Logger
	diag     zerolog.Logger
	sink     Sink
	minLevel *atomic.Int32
	// pending counts in-flight sink submissions. Flush polls it rather than
	// blocking on a waiter, so dispatch may keep running during a flush.
	pending       *atomic.Int64
	identity      Identity
	bound         Fields
	submitTimeout time.Duration
}

// Ensure ShipLogger implements the interface
var _ Logger = (*ShipLogger)(nil)

func newLevelVar(level Level) *atomic.Int32 {
	v := &atomic.Int32{}
	v.Store(int32(level))
	return v
}

// New creates a logger from the given options. The sink, when present, was
// constructed by the caller and is owned by this root logger; derived
// loggers reuse it by reference and never construct their own.
func New(opts Options) *ShipLogger {
	consoleOut := opts.ConsoleOut
	if consoleOut == nil {
		consoleOut = os.Stdout
	}
	diagOut := opts.DiagOut
	if diagOut == nil {
		diagOut = os.Stderr
	}
	// Leveled methods are called from arbitrary goroutines and zerolog does
	// not serialize writes to the underlying writer.
	consoleOut = zerolog.SyncWriter(consoleOut)
	diagOut = zerolog.SyncWriter(diagOut)

	var console zerolog.Logger
	if opts.Pretty {
		console = zerolog.New(zerolog.ConsoleWriter{
			Out:        consoleOut,
			TimeFormat: time.RFC3339,
		})
	} else {
		console = zerolog.New(consoleOut)
	}
	// Level filtering is the dispatcher's job; the console logger itself
	// passes everything through.
	console = console.Level(zerolog.TraceLevel).With().Timestamp().Logger()

	diag := zerolog.New(diagOut).With().Timestamp().Str("component", "shiplog").Logger()

	submitTimeout := opts.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}

	return &ShipLogger{
		console:       console,
		diag:          diag,
		sink:          opts.Sink,
		minLevel:      newLevelVar(opts.MinLevel),
		pending:       &atomic.Int64{},
		identity:      opts.Identity,
		bound:         Fields{},
		submitTimeout: submitTimeout,
	}
}

// Silly logs at the lowest severity.
func (l *ShipLogger) Silly(args ...any) { l.dispatch(LevelSilly, args) }

// Debug logs developer diagnostics.
func (l *ShipLogger) Debug(args ...any) { l.dispatch(LevelDebug, args) }

// Verbose logs detailed operational output.
func (l *ShipLogger) Verbose(args ...any) { l.dispatch(LevelVerbose, args) }

// HTTP logs request/response access lines.
func (l *ShipLogger) HTTP(args ...any) { l.dispatch(LevelHTTP, args) }

// Info logs routine operational messages.
func (l *ShipLogger) Info(args ...any) { l.dispatch(LevelInfo, args) }

// Warn logs recoverable anomalies.
func (l *ShipLogger) Warn(args ...any) { l.dispatch(LevelWarn, args) }

// Error logs failures.
func (l *ShipLogger) Error(args ...any) { l.dispatch(LevelError, args) }

// Log is an alias for Info.
func (l *ShipLogger) Log(args ...any) { l.dispatch(LevelInfo, args) }

// SetLevel changes the minimum severity threshold for subsequent calls on
// this logger. Derived loggers keep their own threshold.
func (l *ShipLogger) SetLevel(level Level) {
	l.minLevel.Store(int32(level))
}

// dispatch runs one accepted call through the pipeline: level filter,
// normalization, synchronous console write, asynchronous sink submission.
// The caller never waits on sink I/O and never sees a sink failure.
func (l *ShipLogger) dispatch(level Level, args []any) {
	if level < Level(l.minLevel.Load()) {
		return
	}

	now := time.Now()
	message, callMeta := Normalize(args)

	meta := make(Fields, len(l.bound)+len(callMeta)+4)
	meta["service"] = l.identity.Service
	meta["environment"] = l.identity.Environment
	meta["version"] = l.identity.Version
	for k, v := range l.bound {
		meta[k] = v
	}
	for k, v := range callMeta {
		meta[k] = v
	}

	l.writeConsole(level, message, meta)

	if l.sink == nil {
		return
	}

	meta[timestampKey] = now.UTC().Format(time.RFC3339Nano)
	rec := Record{Time: now, Level: level, Message: message, Meta: meta}

	l.pending.Add(1)
	go func() {
		defer l.pending.Add(-1)
		ctx, cancel := context.WithTimeout(context.Background(), l.submitTimeout)
		defer cancel()
		if err := l.sink.Submit(ctx, rec); err != nil {
			l.diag.Error().Err(err).Str("level", level.String()).Msg("sink submission failed")
		}
	}()
}

// writeConsole renders the call on the console writer. It must never panic
// and never be skipped, regardless of sink state.
func (l *ShipLogger) writeConsole(level Level, message string, meta Fields) {
	defer func() {
		if r := recover(); r != nil {
			l.diag.Error().Interface("panic", r).Msg("console write failed")
		}
	}()

	zl, lossy := zerologLevel(level)
	ev := l.console.WithLevel(zl)
	if lossy {
		// zerolog has no http/verbose/silly levels; keep the original
		// name visible on the line.
		ev = ev.Str("lvl", level.String())
	}
	if len(meta) > 0 {
		ev = ev.Fields(map[string]any(meta))
	}
	ev.Msg(message)
}

// zerologLevel maps facade levels onto zerolog's scale. The second return
// reports a lossy mapping.
func zerologLevel(level Level) (zerolog.Level, bool) {
	switch level {
	case LevelError:
		return zerolog.ErrorLevel, false
	case LevelWarn:
		return zerolog.WarnLevel, false
	case LevelInfo:
		return zerolog.InfoLevel, false
	case LevelHTTP:
		return zerolog.InfoLevel, true
	case LevelVerbose:
		return zerolog.DebugLevel, true
	case LevelDebug:
		return zerolog.DebugLevel, false
	default:
		return zerolog.TraceLevel, true
	}
}

// Flush waits for outstanding sink submissions to settle and then asks the
// sink to drain its own buffer, giving up once timeout elapses. It always
// returns; abandoned records are reported on the diagnostic writer only.
// Flush is safe to call concurrently with leveled methods: records submitted
// after the wait begins may or may not be captured.
func (l *ShipLogger) Flush(timeout time.Duration) {
	if l.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(pendingPollInterval)
	defer ticker.Stop()
	for l.pending.Load() > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			l.diag.Warn().Dur("timeout", timeout).Msg("flush abandoned with submissions still in flight")
			return
		}
	}

	// The drain is raced against the deadline so a sink that never
	// resolves cannot hang shutdown.
	drained := make(chan error, 1)
	go func() {
		drained <- l.sink.Drain(ctx)
	}()

	select {
	case err := <-drained:
		if err != nil {
			l.diag.Warn().Err(err).Msg("sink drain incomplete")
		}
	case <-ctx.Done():
		l.diag.Warn().Dur("timeout", timeout).Msg("flush abandoned while draining sink")
	}
}
