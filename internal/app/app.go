// Package app assembles the services and their collaborators from
// configuration. Both binaries share it.
package app

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"adboard-backend/internal/config"
	"adboard-backend/internal/email"
	"adboard-backend/internal/events"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/policy"
	"adboard-backend/internal/pricing"
	"adboard-backend/internal/repository"
	"adboard-backend/internal/repository/memory"
	"adboard-backend/internal/repository/postgres"
	"adboard-backend/internal/service"
	"adboard-backend/internal/session"
	"adboard-backend/internal/telegram"
)

// App is the fully wired service graph.
type App struct {
	DB     *sql.DB // nil with the memory driver
	Store  repository.UnitOfWork
	Locks  repository.Locker // guards scheduler ticks across processes
	Staff  *policy.Staff
	Carts  service.CartStore
	Sweep  *session.MemoryStore // set only for in-process carts
	Engine *pricing.Engine

	Accounts  service.AccountService
	Ledger    service.LedgerService
	Channels  service.ChannelService
	Ads       service.AdService
	Sales     service.SaleService
	Funding   service.FundingService
	Placement service.PlacementService
	Reposts   service.RepostService

	closers []func() error
}

// Build opens every backend named by cfg. The caller must Close the result.
func Build(cfg *config.Config) (*App, error) {
	a := &App{Staff: policy.NewStaff(cfg.Staff.AccountIDs)}

	if err := a.openStore(cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openSessions(cfg); err != nil {
		a.Close()
		return nil, err
	}
	collab, err := a.collaborators(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	settings := service.Settings{
		AdLifetime:        cfg.AdLifetime(),
		ExtensionWindow:   cfg.ExtensionWindow(),
		MarketingChatID:   cfg.Telegram.MarketingChatID,
		ExchangeChatID:    cfg.Telegram.ExchangeChatID,
		MinWithdrawal:     cfg.MinWithdrawal(),
		RepostInterval:    cfg.RepostInterval(),
		RepostBatchSize:   cfg.Placement.RepostBatchSize,
		RepostMaxFailures: cfg.Placement.RepostMaxFailures,
	}
	a.Engine = pricing.NewEngine(cfg.PinMultiplier(), pricing.Fees{
		Batch:  cfg.BatchMarkingFee(),
		Single: cfg.SingleMarkingFee(),
	})

	a.Accounts = service.NewAccountService(a.Store, a.Staff, collab)
	a.Ledger = service.NewLedgerService(a.Store, a.Staff, collab)
	a.Channels = service.NewChannelService(a.Store, a.Staff, collab)
	a.Ads = service.NewAdService(a.Store, a.Staff, collab, settings)
	a.Sales = service.NewSaleService(a.Store, a.Staff, collab)
	a.Funding = service.NewFundingService(a.Store, a.Staff, collab, settings)
	a.Placement = service.NewPlacementService(a.Store, a.Engine, a.Carts, collab, settings)
	a.Reposts = service.NewRepostService(a.Store, a.Locks, collab, settings)
	return a, nil
}

func (a *App) openStore(cfg *config.Config) error {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store; all state is lost on exit")
		store := memory.NewStore()
		a.Store, a.Locks = store, store
		return nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")
	a.DB = db
	store := postgres.NewStore(db)
	a.Store, a.Locks = store, store
	return nil
}

func (a *App) openSessions(cfg *config.Config) error {
	if cfg.Session.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr, DB: cfg.Session.RedisDB})
		a.closers = append(a.closers, client.Close)
		a.Carts = session.NewRedisStore(client, "", cfg.SessionTTL())
		logger.Info("Placement carts stored in Redis", "addr", cfg.Session.RedisAddr)
		return nil
	}
	mem := session.NewMemoryStore(cfg.SessionTTL())
	a.Carts, a.Sweep = mem, mem
	return nil
}

func (a *App) collaborators(cfg *config.Config) (service.Collaborators, error) {
	var collab service.Collaborators
	var alerters service.MultiAlerter

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token)
		if err != nil {
			return collab, err
		}
		tg := telegram.NewClient(bot, cfg.Telegram.ModerationChatID)
		collab.Publisher, collab.Notifier = tg, tg
		alerters = append(alerters, tg)
	} else {
		logger.Warn("Telegram token not set; publications and notices are dropped")
	}

	if cfg.Email.SendGridAPIKey != "" && cfg.Email.StaffAddress != "" {
		alerters = append(alerters, email.NewSendGridAlerter(
			cfg.Email.SendGridAPIKey, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.StaffAddress))
	}
	if len(alerters) > 0 {
		collab.Alerter = alerters
	}

	if cfg.Events.AMQPURL != "" {
		pub, err := events.DialRabbit(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			// Start without events when the broker is down.
			logger.Warn("RabbitMQ unavailable; domain events disabled", "error", err)
			collab.Events = events.Noop{}
		} else {
			a.closers = append(a.closers, pub.Close)
			collab.Events = pub
		}
	}
	return collab, nil
}

// Close releases every backend Build opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
