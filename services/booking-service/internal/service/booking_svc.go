package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/klaus2514/Sportsafari/pkg/clock"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

// Publisher emits domain events after commit. *mq.Publisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type Option func(*options)

type options struct {
	gate    PaymentGate
	pub     Publisher
	clock   clock.Clock
	log     *zap.Logger
	metrics *Metrics
}

func WithPaymentGate(g PaymentGate) Option { return func(o *options) { o.gate = g } }
func WithPublisher(p Publisher) Option     { return func(o *options) { o.pub = p } }
func WithClock(c clock.Clock) Option       { return func(o *options) { o.clock = c } }
func WithLogger(l *zap.Logger) Option      { return func(o *options) { o.log = l } }
func WithMetrics(m *Metrics) Option        { return func(o *options) { o.metrics = m } }

func buildOptions(opts []Option) options {
	o := options{gate: AutoApprove{}, clock: clock.NewSystem(), log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// GroundSnapshot is the display data of a ground at read time.
type GroundSnapshot struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Location  string          `json:"location"`
	SportType string          `json:"sportType"`
	Price     decimal.Decimal `json:"price"`
}

func snapshotOf(g *domain.Ground) GroundSnapshot {
	return GroundSnapshot{
		ID:        g.ID,
		Name:      g.Name,
		Image:     g.Image,
		Location:  g.Location,
		SportType: string(g.SportType),
		Price:     g.PricePerSlot,
	}
}

type Receipt struct {
	Booking domain.Booking `json:"booking"`
	Ground  GroundSnapshot `json:"ground"`
}

// BookingSvc coordinates the slot and ledger writes of book and cancel.
type BookingSvc struct {
	scope domain.TransactionScope
	options
}

func NewBookingSvc(scope domain.TransactionScope, opts ...Option) *BookingSvc {
	return &BookingSvc{scope: scope, options: buildOptions(opts)}
}

// Book reserves a free slot for p. The ground row stays locked from the
// availability check until commit, and the slot write is additionally
// guarded on is_booked = false.
func (s *BookingSvc) Book(ctx context.Context, p domain.Principal, groundID, slotID string) (_ *Receipt, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("book", start, err) }()

	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	if groundID == "" || slotID == "" {
		return nil, domain.Validation("groundId and slotId are required")
	}

	var rc *Receipt
	err = s.scope.Execute(ctx, func(st domain.Stores) error {
		g, err := st.Grounds.FindByIDForUpdate(ctx, groundID)
		if err != nil {
			return err
		}
		slot := g.Slot(slotID)
		if slot == nil {
			return domain.NotFound("slot %s not found in ground %s", slotID, groundID)
		}
		if slot.IsBooked {
			return domain.Conflict("slot %s is already booked", slotID)
		}

		pay, err := s.gate.Authorize(ctx, PaymentRequest{GroundID: g.ID, SlotID: slot.ID, UserID: p.ID, Amount: g.PricePerSlot})
		if err != nil {
			return gateError(err)
		}
		if !pay.Valid() {
			return domain.Validation("payment gate returned unknown status %q", pay)
		}

		b := &domain.Booking{
			ID:            uuid.NewString(),
			GroundID:      g.ID,
			SlotID:        slot.ID,
			UserID:        p.ID,
			Date:          slot.Date,
			TimeSlot:      slot.TimeSlot,
			Price:         g.PricePerSlot,
			Status:        domain.StatusConfirmed,
			PaymentStatus: pay,
		}
		if err := st.Bookings.Create(ctx, b); err != nil {
			return err
		}
		free := false
		ok, err := st.Grounds.UpdateSlotFields(ctx, g.ID, slot.ID, domain.SlotGuard{IsBooked: &free}, domain.BookedBy(p.ID, b.ID))
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("slot %s is already booked", slotID)
		}
		rc = &Receipt{Booking: *b, Ground: snapshotOf(g)}
		return nil
	})
	if err != nil {
		s.reject("book", err, zap.String("ground_id", groundID), zap.String("slot_id", slotID), zap.String("principal", p.ID))
		return nil, err
	}

	b := rc.Booking
	s.log.Info("slot booked",
		zap.String("booking_id", b.ID),
		zap.String("ground_id", b.GroundID),
		zap.String("slot_id", b.SlotID),
		zap.String("principal", p.ID))
	s.publish(ctx, domain.RKBookingCreated, domain.BookingCreated{
		BookingID: b.ID,
		GroundID:  b.GroundID,
		SlotID:    b.SlotID,
		UserID:    b.UserID,
		Date:      b.Date.Format(domain.DateLayout),
		TimeSlot:  b.TimeSlot,
		Price:     b.Price.StringFixed(2),
	})
	return rc, nil
}

// Cancel releases a booking. The booker may always cancel; an owner may
// cancel bookings on grounds they own. Anyone else sees NotFound.
func (s *BookingSvc) Cancel(ctx context.Context, p domain.Principal, bookingID string) (_ *domain.Booking, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("cancel", start, err) }()

	if err := p.Authenticated(); err != nil {
		return nil, err
	}

	var out *domain.Booking
	err = s.scope.Execute(ctx, func(st domain.Stores) error {
		b, err := st.Bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != p.ID {
			if !p.IsOwner() {
				return domain.NotFound("booking %s not found", bookingID)
			}
			g, err := st.Grounds.FindByID(ctx, b.GroundID)
			if domain.KindOf(err) == domain.KindNotFound || (err == nil && g.OwnerID != p.ID) {
				return domain.NotFound("booking %s not found", bookingID)
			}
			if err != nil {
				return err
			}
		}
		if err := s.cancelLocked(ctx, st, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		s.reject("cancel", err, zap.String("booking_id", bookingID), zap.String("principal", p.ID))
		return nil, err
	}
	s.statusChanged(ctx, out, p)
	return out, nil
}

// cancelLocked runs inside a scope holding the booking row.
func (s *BookingSvc) cancelLocked(ctx context.Context, st domain.Stores, b *domain.Booking) error {
	if b.Status == domain.StatusCancelled {
		return domain.Conflict("booking %s is already cancelled", b.ID)
	}
	if !b.Status.CanTransition(domain.StatusCancelled) {
		return domain.Conflict("booking %s is %s and cannot be cancelled", b.ID, b.Status)
	}
	ok, err := st.Bookings.UpdateStatus(ctx, b.ID, b.Status, domain.StatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflict("booking %s changed concurrently", b.ID)
	}
	b.Status = domain.StatusCancelled

	ref := b.ID
	ok, err = st.Grounds.UpdateSlotFields(ctx, b.GroundID, b.SlotID, domain.SlotGuard{BookingRef: &ref}, domain.Released())
	if err != nil {
		return err
	}
	if !ok {
		// ground deleted, or the slot no longer points at this booking
		s.log.Warn("cancelled booking had no slot to release",
			zap.String("booking_id", b.ID),
			zap.String("ground_id", b.GroundID),
			zap.String("slot_id", b.SlotID))
	}
	return nil
}

// SetStatus is the owner's transition endpoint: completed marks a played
// booking, cancelled runs the cancel protocol.
func (s *BookingSvc) SetStatus(ctx context.Context, p domain.Principal, bookingID string, to domain.BookingStatus) (_ *domain.Booking, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("set_status", start, err) }()

	if err := p.RequireOwner(); err != nil {
		return nil, err
	}
	parsed, ok := domain.ParseBookingStatus(string(to))
	if !ok {
		return nil, domain.Validation("unknown booking status %q", to)
	}
	to = parsed

	var out *domain.Booking
	err = s.scope.Execute(ctx, func(st domain.Stores) error {
		b, err := st.Bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		g, err := st.Grounds.FindByID(ctx, b.GroundID)
		if err != nil {
			return err
		}
		if g.OwnerID != p.ID {
			return domain.Unauthorized("not authorized to modify booking %s", bookingID)
		}
		if to == domain.StatusCancelled {
			if err := s.cancelLocked(ctx, st, b); err != nil {
				return err
			}
			out = b
			return nil
		}
		if !b.Status.CanTransition(to) {
			return domain.Conflict("booking %s cannot move from %s to %s", b.ID, b.Status, to)
		}
		ok, err := st.Bookings.UpdateStatus(ctx, b.ID, b.Status, to)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("booking %s changed concurrently", b.ID)
		}
		b.Status = to
		out = b
		return nil
	})
	if err != nil {
		s.reject("set_status", err, zap.String("booking_id", bookingID), zap.String("to", string(to)), zap.String("principal", p.ID))
		return nil, err
	}
	s.statusChanged(ctx, out, p)
	return out, nil
}

func (s *BookingSvc) Complete(ctx context.Context, p domain.Principal, bookingID string) (*domain.Booking, error) {
	return s.SetStatus(ctx, p, bookingID, domain.StatusCompleted)
}

func (s *BookingSvc) statusChanged(ctx context.Context, b *domain.Booking, by domain.Principal) {
	s.log.Info("booking status changed",
		zap.String("booking_id", b.ID),
		zap.String("status", string(b.Status)),
		zap.String("principal", by.ID))
	key := domain.RKBookingCancelled
	if b.Status == domain.StatusCompleted {
		key = domain.RKBookingCompleted
	}
	s.publish(ctx, key, domain.BookingStatusChanged{
		BookingID: b.ID,
		GroundID:  b.GroundID,
		SlotID:    b.SlotID,
		Status:    b.Status,
		ByID:      by.ID,
		At:        s.clock.Now(),
	})
}

func (s *BookingSvc) publish(ctx context.Context, key string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		s.log.Warn("publish event failed", zap.String("key", key), zap.Error(err))
	}
}

// reject logs business rejections at warn and storage failures at error.
func (s *BookingSvc) reject(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if domain.KindOf(err) == domain.KindStorageFailure {
		s.log.Error("booking operation failed", fields...)
		return
	}
	s.log.Warn("booking operation rejected", fields...)
}
