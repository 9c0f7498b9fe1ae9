package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

type PaymentRequest struct {
	GroundID string
	SlotID   string
	UserID   string
	Amount   decimal.Decimal
}

// PaymentGate runs inside the booking transaction after the slot is known to
// be free. An error aborts the booking. Gates should return a *domain.Error
// (Conflict for a declined payment); any other error is reported to the
// booker as Conflict with the cause kept for logs.
type PaymentGate interface {
	Authorize(ctx context.Context, req PaymentRequest) (domain.PaymentStatus, error)
}

type PaymentGateFunc func(ctx context.Context, req PaymentRequest) (domain.PaymentStatus, error)

func (f PaymentGateFunc) Authorize(ctx context.Context, req PaymentRequest) (domain.PaymentStatus, error) {
	return f(ctx, req)
}

// AutoApprove records every booking as paid up front.
type AutoApprove struct{}

func (AutoApprove) Authorize(context.Context, PaymentRequest) (domain.PaymentStatus, error) {
	return domain.PaymentSuccess, nil
}

// gateError gives a kind to a gate error that has none. Cancellation and
// deadlines pass through untouched.
func gateError(err error) error {
	if domain.KindOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.Error{Kind: domain.KindConflict, Message: "payment not authorized", Err: err}
}
