package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/watchparty-tickets/internal/config"
	"github.com/iliyamo/watchparty-tickets/internal/database"
	"github.com/iliyamo/watchparty-tickets/internal/handler"
	"github.com/iliyamo/watchparty-tickets/internal/logger"
	"github.com/iliyamo/watchparty-tickets/internal/queue"
	"github.com/iliyamo/watchparty-tickets/internal/repository"
	"github.com/iliyamo/watchparty-tickets/internal/router"
	"github.com/iliyamo/watchparty-tickets/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		// the logger is configured from cfg, so report this one plainly
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store  repository.Store
		health = &handler.HealthHandler{}
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using the in-memory store; data is lost on restart")
		store = repository.NewMemStore()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.DBAutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("database schema applied")
		}
		store = repository.NewSQLStore(db)
		health.DB = db
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; response cache and rate limits disabled")
	} else {
		defer rdb.Close()
	}

	var notifier service.Notifier = service.NopNotifier{}
	if cfg.AMQPURL != "" {
		notifier = queue.NewPublisher(cfg.AMQPURL, log)
		go func() {
			if err := queue.StartTicketConsumer(ctx, cfg.AMQPURL, cfg.TicketLogPath, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("ticket consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; ticket events are not published")
	}

	auth, err := service.NewAuthenticator(store, cfg.BcryptCost, log)
	if err != nil {
		return err
	}
	events := service.NewEvents(store, log)
	reservations := service.NewReservations(store, notifier, log)

	e := router.New(router.Deps{
		Cfg:     cfg,
		Cache:   config.LoadCacheConfig(),
		Log:     log,
		Redis:   rdb,
		Health:  health,
		Auth:    handler.NewAuthHandler(cfg, auth),
		Events:  handler.NewEventHandler(events),
		Tickets: handler.NewTicketHandler(reservations),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
