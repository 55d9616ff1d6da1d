package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"sdi-exam/roster/internal/bootstrap"
)

const postgresProbeName = "postgres"

// dbPinger abstracts the store methods used in Probe so that tests can
// inject a fake without standing up a real database.
type dbPinger interface {
	Ping(ctx context.Context) error
	HasCharacterTable(ctx context.Context) bool
}

// PostgresClient probes the character database through a circuit breaker.
type PostgresClient struct {
	db dbPinger
	cb *gobreaker.CircuitBreaker
}

// NewPostgresClient wraps db, normally a *characters.Store.
func NewPostgresClient(db dbPinger, cb *gobreaker.CircuitBreaker) *PostgresClient {
	return &PostgresClient{db: db, cb: cb}
}

// Probe pings Postgres and verifies the Characters table exists. After three
// consecutive failures the breaker opens and Probe reports "circuit open".
func (c *PostgresClient) Probe(ctx context.Context) bootstrap.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		if err := c.db.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
		if !c.db.HasCharacterTable(ctx) {
			return nil, errors.New("Characters table not found")
		}
		return nil, nil
	})

	return probeResult(postgresProbeName, start, err)
}

// probeResult converts a breaker outcome into a ProbeResult.
func probeResult(name string, start time.Time, err error) bootstrap.ProbeResult {
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		if errors.Is(err, gobreaker.ErrOpenState) {
			errMsg = "circuit open"
		}
		return bootstrap.ProbeResult{
			Name:      name,
			OK:        false,
			LatencyMs: latency,
			Error:     errMsg,
		}
	}

	return bootstrap.ProbeResult{
		Name:      name,
		OK:        true,
		LatencyMs: latency,
	}
}
