package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// notificationQueue receives every order and account event for the notification worker.
const notificationQueue = "storefront.notifications"

var notificationKeys = []string{"order.#", "account.#"}

// application owns the server and the background workers around it.
type application struct {
	cfg     *config.Config
	srv     *server.Server
	mq      *rabbitmq.Client
	cron    *cron.Cron
	closers []func() error
}

func newApplication(cfg *config.Config) (*application, error) {
	db, err := server.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	challenges, closeStore, err := server.ChallengeStore(cfg, db)
	if err != nil {
		return nil, err
	}

	a := &application{cfg: cfg, cron: cron.New()}
	a.closers = append(a.closers, closeStore)
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	// A nil *rabbitmq.Client must not reach the interface.
	var publisher services.EventPublisher
	if a.mq = connectBroker(cfg); a.mq != nil {
		publisher = a.mq
		a.closers = append(a.closers, a.mq.Close)
	}

	a.srv = server.New(server.Options{
		Config:     cfg,
		DB:         db,
		Challenges: challenges,
		Publisher:  publisher,
		RequestLog: true,
	})
	return a, nil
}

// connectBroker returns nil when RabbitMQ is not configured or unreachable.
func connectBroker(cfg *config.Config) *rabbitmq.Client {
	if cfg.RabbitMQURL == "" {
		log.Warn("RABBITMQ_URL is not set, events and OTP emails are disabled")
		return nil
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
	if err != nil {
		log.Warnf("RabbitMQ unavailable, events and OTP emails are disabled: %v", err)
		return nil
	}
	return client
}

// startWorkers schedules the challenge janitor and starts the notification consumer.
func (a *application) startWorkers() error {
	if _, err := a.srv.Janitor.Schedule(a.cron, a.cfg.JanitorSchedule); err != nil {
		return err
	}
	a.cron.Start()

	if a.mq == nil {
		return nil
	}
	if err := a.mq.Consume(notificationQueue, notificationKeys, a.srv.Notifications.HandleEvent); err != nil {
		return fmt.Errorf("failed to start notification consumer: %w", err)
	}
	return nil
}

func (a *application) close() {
	<-a.cron.Stop().Done()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	server.ConfigureLogging(cfg.LogLevel)

	app, err := newApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.close()

	if err := app.startWorkers(); err != nil {
		log.Fatalf("Failed to start background workers: %v", err)
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.srv.App.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	if err := app.srv.App.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
