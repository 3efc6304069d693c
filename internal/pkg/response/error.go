package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidebook/booking-checkout-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// FieldViolation is a single field-level validation failure.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ViolationsResponse is returned when a request fails field-level validation.
// Code is always "VALIDATION_FAILED" so clients can distinguish it from slot
// conflicts and other terminal failures.
type ViolationsResponse struct {
	Error      string           `json:"error"`
	Code       string           `json:"code"`
	Violations []FieldViolation `json:"violations"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code and
// reason code. If it's not an AppError, it defaults to 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message, Code: appErr.Reason})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// Violations sends a 400 response listing every field-level violation at once.
func Violations(c *gin.Context, violations []FieldViolation) {
	c.JSON(http.StatusBadRequest, ViolationsResponse{
		Error:      "request validation failed",
		Code:       "VALIDATION_FAILED",
		Violations: violations,
	})
}
