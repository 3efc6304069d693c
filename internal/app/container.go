package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tidebook/booking-checkout-backend/internal/api"
	"github.com/tidebook/booking-checkout-backend/internal/audit"
	"github.com/tidebook/booking-checkout-backend/internal/auth"
	"github.com/tidebook/booking-checkout-backend/internal/booking"
	"github.com/tidebook/booking-checkout-backend/internal/catalog"
	"github.com/tidebook/booking-checkout-backend/internal/clock"
	"github.com/tidebook/booking-checkout-backend/internal/compensation"
	"github.com/tidebook/booking-checkout-backend/internal/payment"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	DBPool         *pgxpool.Pool
	JWTSecret      string
	JWTTTL         time.Duration
	HoldTTL        time.Duration
	PaymentAPIBase string
	PaymentAPIKey  string
	Emitter        audit.Emitter
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router *gin.Engine
	Gate   *booking.Gate
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	clk := clock.NewSystem()

	// Catalog Module (read-only collaborator)
	catalogRepo := catalog.NewPgxRepository(cfg.DBPool)
	catalogLookup := catalog.NewLookup(catalogRepo)

	// Payment Module
	paymentRepo := payment.NewPgxRepository(cfg.DBPool)
	processor := payment.NewHTTPProcessorClient(cfg.PaymentAPIBase, cfg.PaymentAPIKey)
	paymentService := payment.NewService(paymentRepo, processor)

	// Compensation Module
	outboxRepo := compensation.NewPgxOutboxRepository(cfg.DBPool)
	compensator := compensation.NewService(paymentRepo, processor, outboxRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	gate := booking.NewGate(bookingRepo, clk, cfg.HoldTTL)
	checkoutService := booking.NewService(
		gate, bookingRepo, catalogLookup, paymentService, compensator, cfg.Emitter, clk,
	)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		CheckoutService: checkoutService,
		JWTManager:      jwtManager,
	})

	return &Container{
		Router: router,
		Gate:   gate,
	}
}
