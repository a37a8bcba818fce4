package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/meridianhq/shiplog/logger"
)

const (
	defaultSubjectPrefix = "logs"
	natsConnectTimeout   = 5 * time.Second
)

// NATSSink publishes records to per-level subjects on a NATS server
// (e.g. "logs.error"). Drain waits for the server to acknowledge all
// published messages via a round trip.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

var _ logger.Sink = (*NATSSink)(nil)

// NATSOption customizes a NATSSink.
type NATSOption func(*NATSSink)

// WithSubjectPrefix replaces the default "logs" subject prefix.
func WithSubjectPrefix(prefix string) NATSOption {
	return func(s *NATSSink) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewNATS connects to the given NATS URL. Connection failure is returned to
// the caller; there is no background reconnect beyond the client's own.
func NewNATS(url string, opts ...NATSOption) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("shiplog"),
		nats.Timeout(natsConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	s := &NATSSink{nc: nc, prefix: defaultSubjectPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit publishes one record to its level subject.
func (s *NATSSink) Submit(_ context.Context, rec logger.Record) error {
	data, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := s.nc.Publish(s.subject(rec.Level), data); err != nil {
		return fmt.Errorf("publishing record: %w", err)
	}
	return nil
}

// Drain completes a server round trip, confirming all prior publishes were
// received.
func (s *NATSSink) Drain(ctx context.Context) error {
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing nats connection: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *NATSSink) Close() error {
	s.nc.Close()
	return nil
}

func (s *NATSSink) subject(level logger.Level) string {
	return s.prefix + "." + level.String()
}
