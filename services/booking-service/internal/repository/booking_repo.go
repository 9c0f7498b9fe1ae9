package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

var _ domain.BookingLedger = (*BookingRepo)(nil)

// Create inserts b. A second active booking for the same slot violates
// idx_bookings_active_slot and surfaces as Conflict.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Create(b).Error
	if err != nil {
		err = translate("create booking", "active booking for slot "+b.SlotID, err)
	}
	return err
}

func (r *BookingRepo) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate("load booking", "booking "+id, err)
	}
	return &b, nil
}

func (r *BookingRepo) FindByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error
	if err != nil {
		return nil, translate("lock booking", "booking "+id, err)
	}
	return &b, nil
}

func (r *BookingRepo) FindByPrincipal(ctx context.Context, userID string, includeCancelled bool) ([]domain.Booking, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeCancelled {
		q = q.Where("status <> ?", domain.StatusCancelled)
	}
	var out []domain.Booking
	if err := q.Order("date DESC, created_at DESC").Find(&out).Error; err != nil {
		return nil, translate("list bookings", "bookings", err)
	}
	return out, nil
}

func (r *BookingRepo) FindByGroundSet(ctx context.Context, groundIDs []string) ([]domain.Booking, error) {
	if len(groundIDs) == 0 {
		return nil, nil
	}
	var out []domain.Booking
	err := r.db.WithContext(ctx).Where("ground_id IN ?", groundIDs).
		Order("date DESC, created_at DESC").Find(&out).Error
	if err != nil {
		return nil, translate("list ground bookings", "bookings", err)
	}
	return out, nil
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": r.db.NowFunc()})
	if res.Error != nil {
		return false, translate("update booking status", "booking "+id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *BookingRepo) UpdatePaymentStatus(ctx context.Context, id string, to domain.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{"payment_status": to, "updated_at": r.db.NowFunc()})
	if res.Error != nil {
		return translate("update payment status", "booking "+id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("booking %s not found", id)
	}
	return nil
}

func (r *BookingRepo) All(ctx context.Context) ([]domain.Booking, error) {
	var out []domain.Booking
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, translate("list bookings", "bookings", err)
	}
	return out, nil
}

type EventRepo struct{ db *gorm.DB }

func NewEventRepo(db *gorm.DB) *EventRepo { return &EventRepo{db: db} }

var _ domain.EventLog = (*EventRepo)(nil)

func (r *EventRepo) MarkConsumed(ctx context.Context, eventID, key string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ConsumedEvent{ID: eventID, EventKey: key, ProcessedAt: r.db.NowFunc()})
	if res.Error != nil {
		return false, translate("record event", "event "+eventID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
