// Package bootstrap runs the synchronous startup phases (schema, event
// stream, optional character reset) and the concurrent dependency probes
// behind the deep health endpoint.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// ErrBootstrapInProgress is returned when RunBootstrap is called while a
// bootstrap is already running.
var ErrBootstrapInProgress = errors.New("bootstrap already in progress")

// SchemaMigrator is satisfied by *characters.Store.
type SchemaMigrator interface {
	Migrate(ctx context.Context) error
}

// Seeder is satisfied by *characters.Service.
type Seeder interface {
	Reset(ctx context.Context) error
}

// StreamProvisioner is satisfied by *clients.NATSClient.
type StreamProvisioner interface {
	ProvisionStream(ctx context.Context) error
}

// Prober is satisfied by every client in internal/clients.
type Prober interface {
	Probe(ctx context.Context) ProbeResult
}

// Bootstrapper runs startup phases and health probes.
type Bootstrapper struct {
	schema SchemaMigrator
	seeder Seeder
	events StreamProvisioner
	probes map[string]Prober

	bootstrapInProgress atomic.Bool
	lastResult          *BootstrapResult
	resultMu            sync.RWMutex
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithEvents adds the event stream provisioning phase.
func WithEvents(p StreamProvisioner) Option {
	return func(b *Bootstrapper) { b.events = p }
}

// WithProbe registers a dependency for RunDeepHealth under name.
func WithProbe(name string, p Prober) Option {
	return func(b *Bootstrapper) { b.probes[name] = p }
}

func New(schema SchemaMigrator, seeder Seeder, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		schema: schema,
		seeder: seeder,
		probes: make(map[string]Prober),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RunBootstrap migrates the schema, provisions the event stream and, when
// resetCharacters is true, replaces the Characters table with the seed rows.
// Phases run in order; once one fails the rest are skipped. Returns
// ErrBootstrapInProgress if a bootstrap is already running.
func (b *Bootstrapper) RunBootstrap(ctx context.Context, resetCharacters bool) (*BootstrapResult, error) {
	if !b.bootstrapInProgress.CompareAndSwap(false, true) {
		return nil, ErrBootstrapInProgress
	}
	defer b.bootstrapInProgress.Store(false)

	result := &BootstrapResult{
		Status: StatusInProgress,
		Phases: make(map[string]PhaseResult),
	}

	ctx, span := otel.Tracer("roster").Start(ctx, "roster.bootstrap")
	defer span.End()
	span.SetAttributes(attribute.Bool("bootstrap.reset_characters", resetCharacters))

	slog.InfoContext(ctx, "bootstrap started", "reset_characters", resetCharacters)

	type phase struct {
		name string
		run  func(context.Context) error
	}
	phases := []phase{
		{name: PhaseSchema, run: b.schema.Migrate},
		{name: PhaseEvents},
		{name: PhaseSeed},
	}
	if b.events != nil {
		phases[1].run = b.events.ProvisionStream
	}
	if resetCharacters {
		phases[2].run = b.seeder.Reset
	}

	failed := false
	for _, p := range phases {
		var pr PhaseResult
		switch {
		case failed || p.run == nil:
			pr = PhaseResult{Name: p.name, Status: StatusSkipped}
		default:
			pr = errToPhase(p.name, p.run(ctx))
			failed = pr.Status == StatusError
		}
		logPhase(ctx, pr)
		result.Lock()
		result.Phases[p.name] = pr
		result.Unlock()
	}

	result.Status = StatusOK
	if failed {
		result.Status = StatusError
	}

	span.SetAttributes(attribute.String("bootstrap.status", result.Status))
	if result.Status == StatusError {
		span.SetStatus(codes.Error, "bootstrap phase failed")
		slog.WarnContext(ctx, "bootstrap completed with errors", "status", result.Status)
	} else {
		span.SetStatus(codes.Ok, "")
		slog.InfoContext(ctx, "bootstrap completed", "status", result.Status)
	}

	b.resultMu.Lock()
	b.lastResult = result
	b.resultMu.Unlock()

	return result, nil
}

// RunDeepHealth probes every registered dependency concurrently and returns a
// map of dependency name to ProbeResult.
func (b *Bootstrapper) RunDeepHealth(ctx context.Context) map[string]ProbeResult {
	results := make(map[string]ProbeResult, len(b.probes))
	var mu sync.Mutex
	var g errgroup.Group

	for name, p := range b.probes {
		g.Go(func() error {
			probe := p.Probe(ctx)
			mu.Lock()
			results[name] = probe
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// IsBootstrapInProgress returns true while a bootstrap run is active.
func (b *Bootstrapper) IsBootstrapInProgress() bool {
	return b.bootstrapInProgress.Load()
}

// IsReady returns true if the last bootstrap completed with StatusOK.
func (b *Bootstrapper) IsReady() bool {
	b.resultMu.RLock()
	defer b.resultMu.RUnlock()
	return b.lastResult != nil && b.lastResult.Status == StatusOK
}

func logPhase(ctx context.Context, p PhaseResult) {
	switch p.Status {
	case StatusOK:
		slog.InfoContext(ctx, "bootstrap phase ok", "phase", p.Name)
	case StatusSkipped:
		slog.DebugContext(ctx, "bootstrap phase skipped", "phase", p.Name)
	default:
		slog.WarnContext(ctx, "bootstrap phase failed", "phase", p.Name, "error", p.Error)
	}
}

func errToPhase(name string, err error) PhaseResult {
	if err == nil {
		return PhaseResult{Name: name, Status: StatusOK}
	}
	return PhaseResult{Name: name, Status: StatusError, Error: err.Error()}
}
