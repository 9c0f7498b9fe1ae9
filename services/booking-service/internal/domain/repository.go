package domain

import (
	"context"
	"time"
)

// SlotGuard restricts a targeted slot update to a slot in the expected state.
// Nil fields are not checked.
type SlotGuard struct {
	IsBooked   *bool
	BookingRef *string
}

// SlotPatch is the booking state written onto a slot.
type SlotPatch struct {
	IsBooked   bool
	BookedBy   *string
	BookingRef *string
}

func BookedBy(principalID, bookingID string) SlotPatch {
	return SlotPatch{IsBooked: true, BookedBy: &principalID, BookingRef: &bookingID}
}

func Released() SlotPatch { return SlotPatch{} }

type GroundStore interface {
	Create(ctx context.Context, g *Ground) error
	FindByID(ctx context.Context, id string) (*Ground, error)
	// FindByIDForUpdate locks the ground row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*Ground, error)
	// UpdateSlotFields applies patch when the slot matches guard and reports
	// whether a row changed.
	UpdateSlotFields(ctx context.Context, groundID, slotID string, guard SlotGuard, patch SlotPatch) (bool, error)
	Save(ctx context.Context, g *Ground) error
	Delete(ctx context.Context, id string) error
	FindAvailableBySport(ctx context.Context, sport SportType, from time.Time) ([]Ground, error)
	FindByOwner(ctx context.Context, ownerID string) ([]Ground, error)
	FindByIDs(ctx context.Context, ids []string) ([]Ground, error)
	All(ctx context.Context) ([]Ground, error)
}

type BookingLedger interface {
	Create(ctx context.Context, b *Booking) error
	FindByID(ctx context.Context, id string) (*Booking, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Booking, error)
	FindByPrincipal(ctx context.Context, userID string, includeCancelled bool) ([]Booking, error)
	FindByGroundSet(ctx context.Context, groundIDs []string) ([]Booking, error)
	// UpdateStatus moves a booking from one status to another and reports
	// whether the booking was still in the from status.
	UpdateStatus(ctx context.Context, id string, from, to BookingStatus) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id string, to PaymentStatus) error
	All(ctx context.Context) ([]Booking, error)
}

type EventLog interface {
	// MarkConsumed returns false when the event was recorded before.
	MarkConsumed(ctx context.Context, eventID, key string) (bool, error)
}

// Stores groups the stores that share one transaction.
type Stores struct {
	Grounds  GroundStore
	Bookings BookingLedger
	Events   EventLog
}

// TransactionScope runs fn atomically. fn must use only the stores it is
// handed; they are bound to the transaction.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(s Stores) error) error
}
