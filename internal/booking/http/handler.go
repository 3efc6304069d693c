package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidebook/booking-checkout-backend/internal/auth"
	"github.com/tidebook/booking-checkout-backend/internal/booking"
	"github.com/tidebook/booking-checkout-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Process(c *gin.Context) {
	var body ProcessBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.service.Process(c.Request.Context(), booking.ProcessRequest{
		OwnerID:      userID,
		ServiceID:    body.ServiceID,
		StartTime:    body.StartTime,
		EndTime:      body.EndTime,
		Notes:        body.Notes,
		ContactPhone: body.ClientPhone,
	})
	if err != nil {
		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			response.Violations(c, toResponseViolations(vErr.Violations))
			return
		}
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		Success: true,
		PaymentIntent: PaymentIntentTag{
			ID:           result.PaymentIntentID,
			ClientSecret: result.ClientSecret,
		},
	})
}

func (h *Handler) Confirm(c *gin.Context) {
	var body ConfirmBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	outcome, err := h.service.Confirm(c.Request.Context(), body.PaymentIntentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !outcome.Success {
		c.JSON(statusForKind(outcome.ErrorKind), ConfirmResponse{
			Success:               false,
			Code:                  outcome.ErrorKind,
			CompensationTriggered: outcome.CompensationTriggered,
		})
		return
	}

	c.JSON(http.StatusOK, ConfirmResponse{
		Success:     true,
		Reservation: NewReservationResponse(outcome.Reservation),
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body CancelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	if err := h.service.Cancel(c.Request.Context(), id, userID, body.Reason); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func statusForKind(kind string) int {
	switch kind {
	case booking.ReasonSlotConflict:
		return http.StatusConflict
	case "PAYMENT_DECLINED":
		return http.StatusPaymentRequired
	case "PROCESSOR_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
