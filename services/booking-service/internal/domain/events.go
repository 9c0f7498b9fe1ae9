package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	RKBookingCreated   = "booking.created"
	RKBookingCancelled = "booking.cancelled"
	RKBookingCompleted = "booking.completed"

	RKPaymentPaid     = "payment.paid"
	RKPaymentRefunded = "payment.refunded"
	RKPaymentPending  = "payment.pending"
)

type BookingCreated struct {
	BookingID string `json:"booking_id"`
	GroundID  string `json:"ground_id"`
	SlotID    string `json:"slot_id"`
	UserID    string `json:"user_id"`
	Date      string `json:"date"`
	TimeSlot  string `json:"time_slot"`
	Price     string `json:"price"`
}

type BookingStatusChanged struct {
	BookingID string        `json:"booking_id"`
	GroundID  string        `json:"ground_id"`
	SlotID    string        `json:"slot_id"`
	Status    BookingStatus `json:"status"`
	ByID      string        `json:"by"`
	At        time.Time     `json:"at"`
}

// PaymentEvent is published by the payment side for payment.* keys.
type PaymentEvent struct {
	Event string `json:"event"`
	Data  struct {
		PaymentID string `json:"payment_id"`
		BookingID string `json:"booking_id"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
