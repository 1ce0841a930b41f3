package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"slotshare-backend/config"
	"slotshare-backend/internal/api"
	"slotshare-backend/internal/broadcast"
	"slotshare-backend/internal/core"
	"slotshare-backend/internal/db"
	"slotshare-backend/internal/jobs"
	"slotshare-backend/internal/notification"
)

func main() {
	logger := log.New(os.Stdout, "slotshare-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded from %s", configPath)

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys not configured, push notifications disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized")

	if cfg.Database.SeedDemoData {
		if err := db.SeedDemoData(gormDB); err != nil {
			logger.Fatalf("failed to seed demo data: %v", err)
		}
		logger.Println("demo data seeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := broadcast.New()
	locks := core.NewSlotLocks()
	occupancy := core.NewOccupancyManager(gormDB, locks, bus)
	queue := core.NewQueueManager(gormDB, locks, bus)
	bookings := core.NewBookingManager(gormDB)
	registry := core.NewSlotRegistry(gormDB)

	if webpushOptions != nil {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		go pool.ConsumeReleases(ctx, bus.Subscribe())
		logger.Printf("notification worker pool started (size %d)", cfg.WorkerPool.Size)
	}

	scheduler, err := jobs.NewScheduler(bookings, cfg.Jobs.BookingExpirySpec)
	if err != nil {
		logger.Fatalf("failed to create scheduler: %v", err)
	}
	scheduler.Start()

	router := api.NewRouter(cfg, gormDB, occupancy, queue, bookings, registry, bus, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	scheduler.Stop()
	bus.Close()
	logger.Println("server gracefully stopped")
}
