package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sdi-exam/roster/internal/api"
	"sdi-exam/roster/internal/bootstrap"
	"sdi-exam/roster/internal/characters"
	"sdi-exam/roster/internal/clients"
	"sdi-exam/roster/internal/config"
	"sdi-exam/roster/internal/database"
	"sdi-exam/roster/internal/telemetry"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AppContext holds all constructed application dependencies shared across
// subcommands. It is built once in PersistentPreRunE and referenced by
// server.go and seed.go.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	db           *gorm.DB
	redis        *clients.RedisClient
	nats         *clients.NATSClient
	bootstrapper *bootstrap.Bootstrapper
	router       *api.Router

	closeOnce sync.Once
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Initialises the OTEL provider (best-effort, non-fatal)
//  2. Resolves the connection string and opens the database
//  3. Creates the optional Redis cache and NATS publisher
//  4. Creates the character service and the bootstrapper
//  5. Creates the HTTP router
func buildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{cfg: cfg}

	// A missing collector must never block startup.
	if cfg.Telemetry.OTLPEndpoint == "" {
		slog.Info("OTEL telemetry disabled (no endpoint configured)")
	} else {
		tp, err := telemetry.InitProvider(ctx, cfg.Telemetry)
		if err != nil {
			slog.Warn("OTEL provider init failed, telemetry disabled", "err", err)
		} else {
			app.otelProvider = tp
		}
	}

	dsn, err := database.ResolveConnString(cfg.Database.URL, cfg.ConnectionStrings.DefaultConnection,
		database.TLSOptions{
			TrustServerCertificate: cfg.Database.TrustServerCertificate,
			RootCertFile:           cfg.Database.RootCertFile,
		})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("resolving connection string: %w", err)
	}

	app.db, err = database.Open(ctx, dsn, database.Options{
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	store := characters.NewStore(app.db)

	// One circuit breaker per client so each dependency trips independently.
	var svcOpts []characters.Option
	bootOpts := []bootstrap.Option{
		bootstrap.WithProbe("postgres", clients.NewPostgresClient(store, clients.NewCircuitBreaker("postgres"))),
	}

	if cfg.Cache.Enabled {
		app.redis = clients.NewRedisClient(cfg.Cache, clients.NewCircuitBreaker("redis"))
		svcOpts = append(svcOpts, characters.WithCache(app.redis, cfg.Cache.TTL))
		bootOpts = append(bootOpts, bootstrap.WithProbe("redis", app.redis))
		slog.Info("character list cache enabled", "host", cfg.Cache.Host, "port", cfg.Cache.Port, "ttl", cfg.Cache.TTL)
	}

	if cfg.Events.URL != "" {
		app.nats = clients.NewNATSClient(cfg.Events, clients.NewCircuitBreaker("nats"))
		svcOpts = append(svcOpts, characters.WithPublisher(app.nats))
		bootOpts = append(bootOpts,
			bootstrap.WithEvents(app.nats),
			bootstrap.WithProbe("nats", app.nats),
		)
		slog.Info("character events enabled", "stream", cfg.Events.Stream)
	}

	svc := characters.NewService(store, svcOpts...)
	app.bootstrapper = bootstrap.New(store, svc, bootOpts...)

	gin.SetMode(gin.ReleaseMode)
	app.router = api.NewRouter(svc, app.bootstrapper, api.Options{
		Development:  cfg.IsDevelopment(),
		AllowOrigins: cfg.CORS.AllowOrigins,
		HTTPSPort:    cfg.Server.HTTPSPort,
		JWTSecret:    cfg.Auth.JWTSecret,
		ServiceName:  cfg.Telemetry.ServiceName,
	})

	return app, nil
}

// Close releases every client in reverse construction order. Safe to call
// more than once.
func (a *AppContext) Close() {
	a.closeOnce.Do(func() {
		if a.nats != nil {
			a.nats.Close()
		}
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				slog.Warn("redis close error", "err", err)
			}
		}
		if a.db != nil {
			if err := database.Close(a.db); err != nil {
				slog.Warn("database close error", "err", err)
			}
		}
		if a.otelProvider != nil {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.otelProvider.Shutdown(shutCtx); err != nil {
				slog.Warn("OTEL shutdown error", "err", err)
			}
		}
	})
}
