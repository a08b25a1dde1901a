package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/jstittsworth/milestone-tracker/internal/api/handlers"
	"github.com/jstittsworth/milestone-tracker/internal/providers"
	"github.com/jstittsworth/milestone-tracker/internal/services"
	"github.com/jstittsworth/milestone-tracker/pkg/config"
	"github.com/jstittsworth/milestone-tracker/pkg/database"
	"github.com/jstittsworth/milestone-tracker/pkg/logger"
)

// app holds the wired services shared by every command
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	client  *providers.NHLClient
	source  *providers.CachedSource
	tracker *services.Tracker
	redis   *redis.Client
	db      *database.DB
}

// newApp loads config and wires the stats pipeline. Storage is opened
// separately by openStore since the one-shot display commands don't need it.
func newApp(ctx context.Context, logOutput io.Writer) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.NewWithOutput(logOutput, cfg.LogLevel, cfg.LogFormat, cfg.IsDevelopment())
	location := cfg.Location()

	client := providers.NewNHLClient(providers.NHLClientOptions{
		BaseURL:          cfg.NHLAPIBaseURL,
		Location:         location,
		GameTypes:        cfg.GameTypes,
		RequestTimeout:   cfg.RequestTimeout,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
		RateLimit:        cfg.APIRateLimit,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerTimeout:   cfg.CircuitBreakerTimeout,
		Logger:           log,
	})

	a := &app{cfg: cfg, logger: log, client: client}

	var cache providers.Cache = providers.NewMemoryCache(time.Now)
	if cfg.RedisURL != "" {
		redisClient, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, using in-process cache")
		} else {
			a.redis = redisClient
			cache = services.NewCacheService(redisClient)
		}
	}

	a.source = providers.NewCachedSource(client, cache, providers.CachedSourceOptions{
		TTL:      cfg.CacheTTL,
		Location: location,
		Logger:   log,
	})
	a.tracker = services.NewTracker(a.source, services.TrackerOptions{
		FetchTimeout:  cfg.FetchTimeout,
		ZoneLabel:     cfg.TimezoneLabel,
		UpcomingGames: cfg.UpcomingGames,
	}, log)

	return a, nil
}

// openStore connects the snapshot database and runs migrations
func (a *app) openStore() (*services.SnapshotStore, error) {
	db, err := database.NewConnection(a.cfg.DatabaseURL, a.cfg.IsDevelopment(), a.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	return services.NewSnapshotStore(db), nil
}

func (a *app) notifier() *services.Notifier {
	var sender services.MessageSender
	switch a.cfg.SMSProvider {
	case "twilio":
		sender = services.NewTwilioSender(a.cfg.TwilioAccountSID, a.cfg.TwilioAuthToken, a.cfg.TwilioFromNumber, a.logger)
	default:
		sender = services.NewMockSender(a.logger)
	}

	limiter := services.NewNotifyRateLimiter(a.cfg.NotifyRateLimit, a.cfg.NotifyRateWindow, time.Now)
	return services.NewNotifier(sender, limiter, a.cfg.NotifyNumbers, a.logger)
}

func (a *app) refresher(store *services.SnapshotStore, hub services.Broadcaster) *services.Refresher {
	opts := services.RefresherOptions{
		Notifier: a.notifier(),
		Hub:      hub,
	}
	if store != nil {
		opts.Store = store
	}
	return services.NewRefresher(a.tracker, a.cfg.Milestone(), opts, a.logger)
}

// readinessChecks covers the database, redis and the upstream breaker
func (a *app) readinessChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"nhl_api": func(ctx context.Context) error {
			if state := a.client.BreakerState(); state == gobreaker.StateOpen {
				return fmt.Errorf("circuit breaker %s", state)
			}
			return nil
		},
	}
	if a.db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := a.db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}
	return checks
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
