// Package app wires configuration into a running engine. The standalone
// binary and any transport layer embedding the engine both build it here
// and talk to it through App.Service.
package app

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/round-engine/archive"
	"github.com/Digital-Creators-Team/round-engine/config"
	"github.com/Digital-Creators-Team/round-engine/db/redis"
	"github.com/Digital-Creators-Team/round-engine/engine"
	"github.com/Digital-Creators-Team/round-engine/events/kafka"
	"github.com/Digital-Creators-Team/round-engine/ledger"
	"github.com/Digital-Creators-Team/round-engine/pkg/results"
	"github.com/Digital-Creators-Team/round-engine/provider"
)

// App holds the wired engine. Service is the operation surface;
// Scheduler drives the clocks and is started by the owner.
type App struct {
	Service   *engine.Service
	Scheduler *engine.Scheduler

	closers []func()
}

// New builds the engine from config: external wallet and identity
// services when configured, in-memory fallbacks otherwise, a Redis or
// in-memory result archive, and an optional Kafka outcome publisher.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{}

	var led ledger.Ledger
	if cfg.ExternalServices.WalletService.BaseURL != "" {
		led = provider.NewWalletProvider(cfg, logger)
		logger.Info().Str("base_url", cfg.ExternalServices.WalletService.BaseURL).Msg("using wallet service ledger")
	} else {
		led = ledger.NewMemory()
		logger.Warn().Msg("no wallet service configured, using in-memory ledger")
	}

	var store archive.Store
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		store = archive.NewRedis(redisClient, cfg.Engine.ArchiveSize)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis result archive")
	} else {
		store = archive.NewMemory(cfg.Engine.ArchiveSize)
		logger.Warn().Msg("no redis configured, using in-memory result archive")
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.ResultsTopic,
		Logger:  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	var publisher engine.OutcomePublisher
	if producer != nil {
		a.closers = append(a.closers, func() { _ = producer.Close() })
		publisher = producer
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.ResultsTopic).Msg("publishing outcomes to kafka")
	}

	broadcast := results.NewBroadcaster()
	settler := engine.NewSettler(led, logger)

	a.Scheduler = engine.NewScheduler(cfg, engine.SchedulerDeps{
		Settler:   settler,
		Store:     store,
		Broadcast: broadcast,
		Publisher: publisher,
		Logger:    logger,
	})

	var identity engine.IdentityProvider
	if cfg.ExternalServices.IdentityService.BaseURL != "" {
		identity = provider.NewIdentityProvider(cfg, logger)
	}

	a.Service = engine.NewService(engine.ServiceDeps{
		Scheduler:         a.Scheduler,
		Ledger:            led,
		Store:             store,
		Broadcast:         broadcast,
		Identity:          identity,
		IdentityThreshold: decimal.NewFromFloat(cfg.Engine.IdentityCheckThreshold),
		Logger:            logger,
	})

	return a, nil
}

// Close releases the backing connections. The scheduler must already be
// stopped.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
