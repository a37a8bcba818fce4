// Package sink provides delivery backends for normalized log records: a
// batching HTTP ingestion client, a local JSON-lines file, a NATS subject
// publisher and an AMQP exchange publisher. All implementations satisfy
// logger.Sink; the dispatcher treats them uniformly and absorbs their
// failures.
package sink

import (
	"encoding/json"
	"errors"

	"github.com/meridianhq/shiplog/logger"
)

// Sentinel errors shared by sink implementations.
var (
	// ErrClosed is returned by Submit and Drain after Close.
	ErrClosed = errors.New("sink is closed")
	// ErrMissingToken indicates a blank ingestion credential.
	ErrMissingToken = errors.New("sink token is required")
	// ErrMissingEndpoint indicates no ingestion endpoint was configured.
	ErrMissingEndpoint = errors.New("sink endpoint is required")
)

// payload flattens a record into its wire form: the metadata map plus level
// and message. The delivery timestamp is already present in the metadata
// under "dt".
func payload(rec logger.Record) map[string]any {
	p := make(map[string]any, len(rec.Meta)+2)
	for k, v := range rec.Meta {
		p[k] = v
	}
	p["level"] = rec.Level.String()
	p["message"] = rec.Message
	return p
}

// encode renders a single record as JSON.
func encode(rec logger.Record) ([]byte, error) {
	return json.Marshal(payload(rec))
}
