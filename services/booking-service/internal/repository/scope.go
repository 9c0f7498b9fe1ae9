package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

// NewStores binds every store to db, which may be a transaction handle.
func NewStores(db *gorm.DB) domain.Stores {
	return domain.Stores{
		Grounds:  NewGroundRepo(db),
		Bookings: NewBookingRepo(db),
		Events:   NewEventRepo(db),
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Ground{}, &domain.Slot{}, &domain.Booking{}, &domain.ConsumedEvent{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type TxScope struct{ db *gorm.DB }

func NewTxScope(db *gorm.DB) *TxScope { return &TxScope{db: db} }

var _ domain.TransactionScope = (*TxScope)(nil)

// Execute runs fn in one transaction. gorm rolls back when fn returns an
// error or panics; the connection goes back to the pool on every path.
func (s *TxScope) Execute(ctx context.Context, fn func(domain.Stores) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStores(tx))
	})
	return domain.AsDomain("transaction", err)
}
