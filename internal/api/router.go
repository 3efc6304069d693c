package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tidebook/booking-checkout-backend/internal/auth"
	"github.com/tidebook/booking-checkout-backend/internal/booking"
	bookingHttp "github.com/tidebook/booking-checkout-backend/internal/booking/http"
)

// Config holds everything the router needs to assemble middleware and routes.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	CheckoutService booking.Service
	JWTManager      *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000", // Frontend dev server
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	checkoutHandler := bookingHttp.NewHandler(cfg.CheckoutService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		bookingHttp.RegisterRoutes(v1, checkoutHandler, authMiddleware)
	}

	return r
}
