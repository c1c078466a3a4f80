package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/moto-rentals/internal/auth"
	"github.com/ukydev/moto-rentals/internal/booking"
	"github.com/ukydev/moto-rentals/internal/config"
	"github.com/ukydev/moto-rentals/internal/db"
	"github.com/ukydev/moto-rentals/internal/handlers"
	"github.com/ukydev/moto-rentals/internal/logging"
	"github.com/ukydev/moto-rentals/internal/notify"
	"github.com/ukydev/moto-rentals/internal/payment"
)

const shutdownTimeout = 30 * time.Second

// app is the wired service plus whatever must be released on shutdown.
type app struct {
	handler http.Handler
	closers []func(context.Context)
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}

func main() {
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
}

// run serves until ctx is cancelled, then shuts the server down gracefully.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	shutdownCtx := context.WithoutCancel(ctx)
	defer a.close(shutdownCtx)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": server.Addr, "store": cfg.Store}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Received terminate, graceful shutdown")
	timeoutCtx, cancel := context.WithTimeout(shutdownCtx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(timeoutCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// newApp wires the store, services and router described by cfg.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{}
	store, ping, err := openStore(ctx, cfg, log, a)
	if err != nil {
		return nil, err
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("auth service: %w", err)
	}

	var publisher notify.Publisher
	if cfg.MQTTBroker != "" {
		mqttPublisher, err := notify.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, log)
		if err != nil {
			log.WithError(err).Warn("MQTT unavailable, notifications will only be stored")
		} else {
			publisher = mqttPublisher
			a.closers = append(a.closers, func(context.Context) { mqttPublisher.Close() })
		}
	}
	dispatcher := notify.NewDispatcher(store.Notifications, publisher, cfg.MQTTTopicPrefix, log)

	manager := booking.NewManager(store, payment.NewSimulated(cfg.DeclinedCards...), dispatcher, log, cfg.Currency)

	a.handler = handlers.NewRouter(handlers.Dependencies{
		Store:          store,
		Auth:           authService,
		Bookings:       manager,
		Reviews:        booking.NewAggregator(store, log),
		Notifications:  dispatcher,
		Log:            log,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		Ping:           ping,
	})
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger, a *app) (*db.Store, func(context.Context) error, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("Using the in-memory store; data is lost on restart")
		return db.NewMemoryStore().Store(), nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	client, err := db.ConnectMongo(connectCtx, cfg.MongoURI)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, func(ctx context.Context) {
		if err := client.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	})
	if err := db.EnsureIndexes(connectCtx, client.Database(cfg.MongoDB)); err != nil {
		a.close(ctx)
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	ping := func(ctx context.Context) error { return client.Ping(ctx, nil) }
	return db.NewMongoStore(client, cfg.MongoDB), ping, nil
}
