// Package shiplog is the entry point of the logging facade. New resolves
// configuration, constructs the appropriate sink and returns a ready logger.
// Construction never fails: configuration problems and sink failures degrade
// the logger to console-only operation and are reported on stderr.
package shiplog

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/meridianhq/shiplog/config"
	"github.com/meridianhq/shiplog/logger"
	"github.com/meridianhq/shiplog/sink"
)

// New builds a logger from explicit options layered over environment
// variables and defaults. When a sink token is configured, records are also
// delivered to the remote endpoint; otherwise a NATS or AMQP broker URL
// enables broker delivery, and a file path enables local JSON-lines delivery.
// The returned logger lives for the process; call Flush before exit to bound
// delivery loss.
func New(opts config.Options) *logger.ShipLogger {
	return newLogger(opts, nil, os.Stderr)
}

func newLogger(opts config.Options, consoleOut, diagOut io.Writer) *logger.ShipLogger {
	cfg := config.Load(opts)

	diag := zerolog.New(diagOut).With().Timestamp().Str("component", "shiplog").Logger()
	for _, warning := range cfg.Warnings {
		diag.Warn().Err(warning).Msg("configuration degraded")
	}

	return logger.New(logger.Options{
		Identity: logger.Identity{
			Service:     cfg.Service,
			Environment: cfg.Environment,
			Version:     cfg.Version,
		},
		MinLevel:   logger.ParseLevel(cfg.MinLevel),
		Pretty:     cfg.Pretty,
		Sink:       buildSink(cfg, diag),
		ConsoleOut: consoleOut,
		DiagOut:    diagOut,
	})
}

// buildSink picks the delivery target from the resolved config, one
// transport per logger: token beats NATS beats AMQP beats file path. The
// selection is deterministic; a configured transport that fails to construct
// disables delivery rather than falling through to the next one. The logger
// still works as a console logger either way.
func buildSink(cfg *config.Config, diag zerolog.Logger) logger.Sink {
	if cfg.Sink.Token != "" {
		if cfg.Sink.Endpoint == "" {
			diag.Warn().Msg("sink token set without endpoint, remote delivery disabled")
			return nil
		}
		s, err := sink.NewHTTP(cfg.Sink.Token, cfg.Sink.Endpoint)
		if err != nil {
			diag.Error().Err(err).Str("endpoint", cfg.Sink.Endpoint).Msg("remote sink unavailable, continuing console-only")
			return nil
		}
		return s
	}

	if cfg.NATS.URL != "" {
		s, err := sink.NewNATS(cfg.NATS.URL)
		if err != nil {
			diag.Error().Err(err).Str("url", cfg.NATS.URL).Msg("nats sink unavailable, continuing console-only")
			return nil
		}
		return s
	}

	if cfg.AMQP.URL != "" {
		s, err := sink.NewAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			diag.Error().Err(err).Str("exchange", cfg.AMQP.Exchange).Msg("amqp sink unavailable, continuing console-only")
			return nil
		}
		return s
	}

	if cfg.File.Path != "" {
		s, err := sink.NewFile(cfg.File.Path)
		if err != nil {
			diag.Error().Err(err).Str("path", cfg.File.Path).Msg("file sink unavailable, continuing console-only")
			return nil
		}
		return s
	}

	return nil
}
