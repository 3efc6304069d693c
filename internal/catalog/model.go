package catalog

import (
	"net/http"
	"time"

	"github.com/tidebook/booking-checkout-backend/internal/pkg/apperror"
)

var ErrNotFound = apperror.New(http.StatusNotFound, "service not found")

// Service is a bookable catalog entry: a priced, fixed-duration offering
// performed by a single provider resource. The catalog is managed elsewhere;
// this service only reads it.
type Service struct {
	ID              string
	ResourceID      string
	Name            string
	PriceCents      int64
	Currency        string
	DurationMinutes int
	CreatedAt       time.Time
}
