package characters

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	listCacheKey = "roster:characters:all"

	SubjectCreated = "characters.created"
	SubjectUpdated = "characters.updated"
	SubjectDeleted = "characters.deleted"
	SubjectReset   = "characters.reset"
)

// Repository is satisfied by *Store.
type Repository interface {
	List(ctx context.Context) ([]Character, error)
	Get(ctx context.Context, id uint) (*Character, error)
	Create(ctx context.Context, c *Character) error
	Update(ctx context.Context, c *Character) error
	Delete(ctx context.Context, id uint) error
	Reset(ctx context.Context, rows []Character) error
}

// Cache is satisfied by *clients.RedisClient.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Publisher is satisfied by *clients.NATSClient.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Event is the payload published on every change.
type Event struct {
	Subject   string     `json:"subject"`
	ID        uint       `json:"id,omitempty"`
	Character *Character `json:"character,omitempty"`
	Count     int        `json:"count,omitempty"`
	At        time.Time  `json:"at"`
}

// Service fronts the repository with an optional list cache and optional
// change events. Cache and event failures are logged, never returned.
type Service struct {
	repo      Repository
	cache     Cache
	publisher Publisher
	cacheTTL  time.Duration
	tracer    trace.Tracer
	now       func() time.Time

	// writes counts committed changes; a list read that overlaps one is
	// not cached.
	writes atomic.Uint64
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables caching of the full character list.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithPublisher enables change events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tracer: otel.Tracer("roster"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]Character, error) {
	ctx, span := s.tracer.Start(ctx, "characters.list")
	defer span.End()

	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, listCacheKey)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "character cache read failed", "err", err)
		case ok:
			var out []Character
			if err := json.Unmarshal(raw, &out); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return out, nil
			}
			slog.WarnContext(ctx, "discarding undecodable cache entry", "key", listCacheKey)
		}
	}

	gen := s.writes.Load()
	out, err := s.repo.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if s.cache != nil {
		s.storeList(ctx, gen, out)
	}
	return out, nil
}

// storeList caches out unless a write landed since gen was read. A write
// that races the Set is caught by the second check and the entry dropped.
func (s *Service) storeList(ctx context.Context, gen uint64, out []Character) {
	if s.writes.Load() != gen {
		return
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, listCacheKey, raw, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "character cache write failed", "err", err)
		return
	}
	if s.writes.Load() != gen {
		if err := s.cache.Delete(ctx, listCacheKey); err != nil {
			slog.WarnContext(ctx, "character cache invalidation failed", "err", err)
		}
	}
}

func (s *Service) Get(ctx context.Context, id uint) (*Character, error) {
	ctx, span := s.tracer.Start(ctx, "characters.get",
		trace.WithAttributes(attribute.String("character.id", strconv.FormatUint(uint64(id), 10))))
	defer span.End()

	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, c *Character) error {
	ctx, span := s.tracer.Start(ctx, "characters.create")
	defer span.End()

	if err := s.repo.Create(ctx, c); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.changed(ctx, Event{Subject: SubjectCreated, ID: c.ID, Character: c})
	return nil
}

func (s *Service) Update(ctx context.Context, c *Character) error {
	ctx, span := s.tracer.Start(ctx, "characters.update")
	defer span.End()

	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}
	s.changed(ctx, Event{Subject: SubjectUpdated, ID: c.ID, Character: c})
	return nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	ctx, span := s.tracer.Start(ctx, "characters.delete")
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, Event{Subject: SubjectDeleted, ID: id})
	return nil
}

// Reset replaces every character with the seed rows.
func (s *Service) Reset(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "characters.reset")
	defer span.End()

	rows := SeedCharacters()
	if err := s.repo.Reset(ctx, rows); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "characters reset", "count", len(rows))
	s.changed(ctx, Event{Subject: SubjectReset, Count: len(rows)})
	return nil
}

// changed invalidates the list cache and publishes ev.
func (s *Service) changed(ctx context.Context, ev Event) {
	s.writes.Add(1)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, listCacheKey); err != nil {
			slog.WarnContext(ctx, "character cache invalidation failed", "err", err)
		}
	}
	if s.publisher == nil {
		return
	}
	ev.At = s.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		slog.WarnContext(ctx, "encoding character event", "err", err)
		return
	}
	if err := s.publisher.Publish(ctx, ev.Subject, data); err != nil {
		slog.WarnContext(ctx, "publishing character event failed", "subject", ev.Subject, "err", err)
	}
}
