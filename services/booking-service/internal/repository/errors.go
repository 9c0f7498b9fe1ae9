package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

// translate maps gorm errors onto domain kinds. what names the missing
// record for NotFound messages.
func translate(op, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.KindOf(err) != "":
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &domain.Error{Kind: domain.KindConflict, Message: what + " already exists", Err: err}
	default:
		return domain.StorageFailure(op, err)
	}
}
