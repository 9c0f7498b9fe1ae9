package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidTimeSlot(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"10:00 AM - 11:00 AM", true},
		{"9:30 PM - 10:30 PM", true},
		{"23:00 PM - 23:59 PM", true},
		{"10:00AM - 11:00AM", false},
		{"10:00 AM-11:00 AM", false},
		{"24:00 AM - 1:00 AM", false},
		{"10:60 AM - 11:00 AM", false},
		{"10:00 am - 11:00 am", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTimeSlot(tt.in))
		})
	}
}

func TestParseSport(t *testing.T) {
	s, ok := ParseSport(" Football ")
	assert.True(t, ok)
	assert.Equal(t, SportFootball, s)

	_, ok = ParseSport("chess")
	assert.False(t, ok)
}

func TestValidateSlots(t *testing.T) {
	ok := []SlotInput{
		{Date: "2025-06-01", TimeSlot: "10:00 AM - 11:00 AM"},
		{ID: "a", Date: "2025-06-01", TimeSlot: "11:00 AM - 12:00 PM"},
	}
	assert.NoError(t, ValidateSlots(ok))

	badDate := []SlotInput{{Date: "01/06/2025", TimeSlot: "10:00 AM - 11:00 AM"}}
	assert.ErrorIs(t, ValidateSlots(badDate), ErrValidation)

	badRange := []SlotInput{{Date: "2025-06-01", TimeSlot: "morning"}}
	assert.ErrorIs(t, ValidateSlots(badRange), ErrValidation)

	dup := []SlotInput{
		{ID: "a", Date: "2025-06-01", TimeSlot: "10:00 AM - 11:00 AM"},
		{ID: "a", Date: "2025-06-02", TimeSlot: "10:00 AM - 11:00 AM"},
	}
	assert.ErrorIs(t, ValidateSlots(dup), ErrValidation)
}

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice(decimal.Zero))
	assert.NoError(t, ValidatePrice(decimal.NewFromInt(500)))
	assert.ErrorIs(t, ValidatePrice(decimal.NewFromInt(-1)), ErrValidation)
}

func TestSlot_AvailableAndConsistent(t *testing.T) {
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	user, ref := "u1", "b1"

	free := Slot{Date: today}
	assert.True(t, free.Available(today))
	assert.True(t, free.Consistent())

	past := Slot{Date: today.AddDate(0, 0, -1)}
	assert.False(t, past.Available(today))

	booked := Slot{Date: today, IsBooked: true, BookedBy: &user, BookingRef: &ref}
	assert.False(t, booked.Available(today))
	assert.True(t, booked.Consistent())

	assert.False(t, Slot{IsBooked: true, BookedBy: &user}.Consistent())
	assert.False(t, Slot{BookingRef: &ref}.Consistent())
}
