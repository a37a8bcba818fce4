package sink

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/meridianhq/shiplog/logger"
)

const confirmPollInterval = 10 * time.Millisecond

// AMQPSink publishes records as persistent JSON messages to an exchange.
// The channel runs in confirm mode; Drain waits until the broker has
// confirmed every outstanding publish.
type AMQPSink struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	exchange    string
	routingKey  string
	outstanding atomic.Int64
}

var _ logger.Sink = (*AMQPSink)(nil)

// NewAMQP dials the broker and opens a confirm-mode channel. Any failure is
// returned to the caller; partially opened resources are released.
func NewAMQP(brokerURL, exchange, routingKey string) (*AMQPSink, error) {
	conn, err := amqp.Dial(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("enabling publisher confirms: %w", err)
	}

	s := &AMQPSink{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
	}

	confirms := channel.NotifyPublish(make(chan amqp.Confirmation, 256))
	go s.trackConfirms(confirms)

	return s, nil
}

func (s *AMQPSink) trackConfirms(confirms <-chan amqp.Confirmation) {
	// The channel closes when the AMQP channel does.
	for range confirms {
		s.outstanding.Add(-1)
	}
}

// Submit publishes one record.
func (s *AMQPSink) Submit(ctx context.Context, rec logger.Record) error {
	data, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	s.outstanding.Add(1)
	err = s.channel.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    rec.Time,
		MessageId:    uuid.NewString(),
		Body:         data,
	})
	if err != nil {
		s.outstanding.Add(-1)
		return fmt.Errorf("publishing record: %w", err)
	}
	return nil
}

// Drain waits until the broker has confirmed all outstanding publishes or
// the context expires.
func (s *AMQPSink) Drain(ctx context.Context) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		if s.outstanding.Load() <= 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("%d publishes unconfirmed: %w", s.outstanding.Load(), ctx.Err())
		}
	}
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() error {
	if err := s.channel.Close(); err != nil {
		s.conn.Close()
		return fmt.Errorf("closing amqp channel: %w", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("closing amqp connection: %w", err)
	}
	return nil
}
