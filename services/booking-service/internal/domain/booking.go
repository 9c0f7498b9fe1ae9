package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

// Terminal statuses admit no further transition.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Active bookings hold their slot.
func (s BookingStatus) Active() bool { return s != StatusCancelled }

// CanTransition allows only confirmed -> cancelled and confirmed -> completed.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	return s == StatusConfirmed && (to == StatusCancelled || to == StatusCompleted)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentSuccess  PaymentStatus = "success"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentRefunded, PaymentSuccess:
		return true
	}
	return false
}

// Booking is the durable record of one reservation. Date, TimeSlot and Price
// are copied from the slot and ground when the booking is made and never
// follow later edits.
type Booking struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	GroundID      string          `gorm:"index;size:36;not null" json:"groundId"`
	SlotID        string          `gorm:"size:36;not null;uniqueIndex:idx_bookings_active_slot,where:status <> 'cancelled'" json:"slotId"`
	UserID        string          `gorm:"index;size:64;not null" json:"userId"`
	Date          time.Time       `gorm:"not null" json:"date"`
	TimeSlot      string          `gorm:"size:32;not null" json:"timeSlot"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Status        BookingStatus   `gorm:"index;size:16;not null" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"size:16;not null" json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ConsumedEvent records a broker message that has already been applied.
type ConsumedEvent struct {
	ID          string `gorm:"primaryKey;size:64"`
	EventKey    string `gorm:"index;size:64"`
	ProcessedAt time.Time
}

func (ConsumedEvent) TableName() string { return "consumed_events" }
