package http

import (
	"time"

	"github.com/tidebook/booking-checkout-backend/internal/booking"
	"github.com/tidebook/booking-checkout-backend/internal/pkg/response"
)

type ProcessBody struct {
	ServiceID   string    `json:"service_id" binding:"required,uuid"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Notes       string    `json:"notes"`
	ClientPhone string    `json:"client_phone"`
}

type PaymentIntentTag struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type ProcessResponse struct {
	Success       bool             `json:"success"`
	PaymentIntent PaymentIntentTag `json:"payment_intent"`
}

type ConfirmBody struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

type ReservationResponse struct {
	ID           string    `json:"id"`
	ResourceID   string    `json:"resource_id"`
	ServiceID    string    `json:"service_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
	PaymentRef   string    `json:"payment_ref"`
	Notes        string    `json:"notes,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewReservationResponse(r *booking.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:           r.ID,
		ResourceID:   r.ResourceID,
		ServiceID:    r.ServiceID,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Status:       string(r.Status),
		PaymentRef:   r.PaymentRef,
		Notes:        r.Notes,
		ContactPhone: r.ContactPhone,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type ConfirmResponse struct {
	Success               bool                 `json:"success"`
	Reservation           *ReservationResponse `json:"reservation,omitempty"`
	Code                  string               `json:"code,omitempty"`
	CompensationTriggered bool                 `json:"compensation_triggered"`
}

type CancelBody struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

func toResponseViolations(vs []booking.FieldViolation) []response.FieldViolation {
	out := make([]response.FieldViolation, len(vs))
	for i, v := range vs {
		out[i] = response.FieldViolation{Field: v.Field, Message: v.Message}
	}
	return out
}
