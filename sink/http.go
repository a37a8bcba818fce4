package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridianhq/shiplog/logger"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultMaxBatch      = 100
	defaultHTTPTimeout   = 10 * time.Second

	headerRequestID = "X-Request-ID"
)

// HTTPSink ships records to a remote ingestion endpoint as JSON arrays.
// Submissions buffer in memory; a background loop posts a batch when it
// fills or on a fixed interval. Delivery is best effort: a failed post drops
// its batch and the failure surfaces on the next Drain.
type HTTPSink struct {
	endpoint string
	token    string
	client   *http.Client

	mu      sync.Mutex
	batch   []map[string]any
	lastErr error
	closed  bool

	kick     chan struct{}
	flushReq chan flushRequest
	done     chan struct{}
	loop     sync.WaitGroup

	interval time.Duration
	maxBatch int
}

var _ logger.Sink = (*HTTPSink)(nil)

type flushRequest struct {
	ctx   context.Context
	reply chan error
}

// HTTPOption customizes an HTTPSink.
type HTTPOption func(*HTTPSink)

// WithHTTPClient replaces the default client, mainly for tests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSink) { s.client = client }
}

// WithMaxBatch caps how many records accumulate before a post is forced.
func WithMaxBatch(n int) HTTPOption {
	return func(s *HTTPSink) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithFlushInterval sets the periodic post interval.
func WithFlushInterval(d time.Duration) HTTPOption {
	return func(s *HTTPSink) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewHTTP creates an ingestion sink for the given credential and endpoint.
// It fails fast on a blank token or an endpoint without scheme and host;
// the config package is responsible for normalizing schemeless endpoints
// before they reach here.
func NewHTTP(token, endpoint string, opts ...HTTPOption) (*HTTPSink, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrMissingEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing sink endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("sink endpoint %q must include scheme and host", endpoint)
	}

	s := &HTTPSink{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		kick:     make(chan struct{}, 1),
		flushReq: make(chan flushRequest),
		done:     make(chan struct{}),
		interval: defaultFlushInterval,
		maxBatch: defaultMaxBatch,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.loop.Add(1)
	go s.run()
	return s, nil
}

// Submit buffers one record. It never performs network I/O itself.
func (s *HTTPSink) Submit(_ context.Context, rec logger.Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.batch = append(s.batch, payload(rec))
	full := len(s.batch) >= s.maxBatch
	s.mu.Unlock()

	if full {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Drain posts the buffered batch and reports any delivery failure since the
// previous drain. It honors the context deadline.
func (s *HTTPSink) Drain(ctx context.Context) error {
	req := flushRequest{ctx: ctx, reply: make(chan error, 1)}

	select {
	case s.flushReq <- req:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		s.mu.Lock()
		past := s.lastErr
		s.lastErr = nil
		s.mu.Unlock()
		return errors.Join(err, past)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the background loop and posts whatever is still buffered.
func (s *HTTPSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.loop.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()
	return s.post(ctx)
}

func (s *HTTPSink) run() {
	defer s.loop.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.recordErr(s.post(context.Background()))
		case <-s.kick:
			s.recordErr(s.post(context.Background()))
		case req := <-s.flushReq:
			req.reply <- s.post(req.ctx)
		case <-s.done:
			return
		}
	}
}

func (s *HTTPSink) recordErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// post takes the current batch and delivers it in a single request. An empty
// batch is a no-op. The batch is not requeued on failure.
func (s *HTTPSink) post(ctx context.Context) error {
	s.mu.Lock()
	batch := s.batch
	s.batch = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building ingestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set(headerRequestID, uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting %d records: %w", len(batch), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ingestion endpoint returned %s for %d records", resp.Status, len(batch))
	}
	return nil
}
