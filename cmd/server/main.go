package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidebook/booking-checkout-backend/internal/app"
	"github.com/tidebook/booking-checkout-backend/internal/audit"
	"github.com/tidebook/booking-checkout-backend/internal/config"
	"github.com/tidebook/booking-checkout-backend/internal/db"
	"github.com/tidebook/booking-checkout-backend/migrations"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	// Apply schema migrations
	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	// Audit emitter: broker-backed when configured, log-only otherwise.
	var emitter audit.Emitter
	if cfg.AMQPURL != "" {
		amqpEmitter, err := audit.NewAMQPEmitter(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to connect to broker: %v", err)
		}
		defer amqpEmitter.Close()
		emitter = amqpEmitter
	} else {
		log.Println("AMQP_URL not set, audit events go to the process log")
		emitter = audit.NewLogEmitter()
	}

	// Init components
	container := app.NewContainer(app.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		DBPool:         pool,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTAccessTokenTTL,
		HoldTTL:        cfg.HoldTTL,
		PaymentAPIBase: cfg.PaymentAPIBase,
		PaymentAPIKey:  cfg.PaymentAPIKey,
		Emitter:        emitter,
	})

	// Background sweep so abandoned holds never block a resource.
	go container.Gate.StartReaper(ctx, cfg.HoldReapInterval)

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		log.Printf("server running on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Println("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("server exited gracefully")
}
