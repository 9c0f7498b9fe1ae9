package handlers

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

var registerOnce sync.Once

// RegisterValidators adds the timeslot, sport and ymd tags to gin's binding
// validator. Safe to call more than once.
func RegisterValidators() (err error) {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		for tag, fn := range map[string]validator.Func{
			"timeslot": func(fl validator.FieldLevel) bool { return domain.ValidTimeSlot(fl.Field().String()) },
			"sport": func(fl validator.FieldLevel) bool {
				_, ok := domain.ParseSport(fl.Field().String())
				return ok
			},
			"ymd": func(fl validator.FieldLevel) bool {
				_, err := time.Parse(domain.DateLayout, fl.Field().String())
				return err == nil
			},
		} {
			if err = v.RegisterValidation(tag, fn); err != nil {
				return
			}
		}
	})
	return err
}
