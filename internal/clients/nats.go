package clients

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"

	"sdi-exam/roster/internal/bootstrap"
	"sdi-exam/roster/internal/config"
)

const natsProbeName = "nats"

// eventSubjects is the subject filter of the character event stream.
var eventSubjects = []string{"characters.>"}

const eventMaxAge = 7 * 24 * time.Hour

// jsContext is the subset of nats.JetStreamContext used here. Defining an
// interface allows test doubles to be injected without a live NATS server.
type jsContext interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSClient provisions the character event stream, publishes change events
// into it and probes NATS for the deep health check.
type NATSClient struct {
	url    string
	stream string
	cb     *gobreaker.CircuitBreaker
	newJS  func(url string) (jsContext, func(), error)

	mu      sync.Mutex
	js      jsContext
	cleanup func()
}

// NewNATSClient constructs a NATSClient. The connection is opened lazily on
// first use and reused afterwards.
func NewNATSClient(cfg config.EventsConfig, cb *gobreaker.CircuitBreaker) *NATSClient {
	return &NATSClient{
		url:    cfg.URL,
		stream: cfg.Stream,
		cb:     cb,
		newJS:  realNewJS,
	}
}

// conn returns the shared JetStream context, connecting on first use.
func (c *NATSClient) conn() (jsContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.js != nil {
		return c.js, nil
	}
	js, cleanup, err := c.newJS(c.url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	c.js, c.cleanup = js, cleanup
	return js, nil
}

// ProvisionStream creates the event stream or updates it if it already
// exists. The operation is wrapped in the circuit breaker.
func (c *NATSClient) ProvisionStream(_ context.Context) error {
	_, err := c.cb.Execute(func() (any, error) {
		js, err := c.conn()
		if err != nil {
			return nil, err
		}
		return nil, provisionStream(js, &nats.StreamConfig{
			Name:      c.stream,
			Subjects:  eventSubjects,
			Retention: nats.LimitsPolicy,
			MaxAge:    eventMaxAge,
		})
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return fmt.Errorf("circuit open: %w", err)
		}
		return err
	}
	return nil
}

// Publish sends data on subject and waits for the JetStream ack.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.cb.Execute(func() (any, error) {
		js, err := c.conn()
		if err != nil {
			return nil, err
		}
		if _, err := js.Publish(subject, data, nats.Context(ctx)); err != nil {
			return nil, fmt.Errorf("publishing %s: %w", subject, err)
		}
		return nil, nil
	})
	return err
}

// Probe verifies NATS connectivity. A missing stream is not treated as a
// failure; NATS being reachable is what matters here.
func (c *NATSClient) Probe(_ context.Context) bootstrap.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		js, err := c.conn()
		if err != nil {
			return nil, err
		}
		_, infoErr := js.StreamInfo(c.stream)
		if infoErr != nil && !errors.Is(infoErr, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("stream info: %w", infoErr)
		}
		return nil, nil
	})

	return probeResult(natsProbeName, start, err)
}

// Close drains and closes the shared connection, if any.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleanup != nil {
		c.cleanup()
	}
	c.js, c.cleanup = nil, nil
}

// provisionStream creates the stream if it does not exist, or updates it if it
// does. nats.ErrStreamNotFound signals "create"; any other error is returned.
func provisionStream(js jsContext, cfg *nats.StreamConfig) error {
	_, err := js.StreamInfo(cfg.Name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, addErr := js.AddStream(cfg); addErr != nil {
			return fmt.Errorf("creating stream %s: %w", cfg.Name, addErr)
		}
	case err != nil:
		return fmt.Errorf("querying stream %s: %w", cfg.Name, err)
	default:
		if _, updErr := js.UpdateStream(cfg); updErr != nil {
			return fmt.Errorf("updating stream %s: %w", cfg.Name, updErr)
		}
	}
	return nil
}

// realNewJS opens a real NATS connection and returns a JetStreamContext plus a
// cleanup function that drains the connection.
func realNewJS(url string) (jsContext, func(), error) {
	nc, err := nats.Connect(url, nats.Name("roster"))
	if err != nil {
		return nil, func() {}, fmt.Errorf("nats connect %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, func() {}, fmt.Errorf("nats jetstream context: %w", err)
	}

	return js, func() { nc.Drain() }, nil //nolint:errcheck
}
