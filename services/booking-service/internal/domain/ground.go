package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SportType string

const (
	SportCricket    SportType = "cricket"
	SportFootball   SportType = "football"
	SportTennis     SportType = "tennis"
	SportBadminton  SportType = "badminton"
	SportBasketball SportType = "basketball"
)

var sports = []SportType{SportCricket, SportFootball, SportTennis, SportBadminton, SportBasketball}

func ParseSport(s string) (SportType, bool) {
	st := SportType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range sports {
		if v == st {
			return st, true
		}
	}
	return "", false
}

const DateLayout = "2006-01-02"

var timeSlotRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9] (AM|PM) - ([0-1]?[0-9]|2[0-3]):[0-5][0-9] (AM|PM)$`)

func ValidTimeSlot(s string) bool { return timeSlotRe.MatchString(s) }

type Ground struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	Description  string          `json:"description"`
	Location     string          `gorm:"not null" json:"location"`
	OwnerID      string          `gorm:"index;not null" json:"ownerId"`
	PricePerSlot decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"pricePerSlot"`
	Image        string          `json:"image"`
	Capacity     int             `gorm:"not null" json:"capacity"`
	Amenities    []string        `gorm:"serializer:json;type:text" json:"amenities"`
	SportType    SportType       `gorm:"index;size:20;not null" json:"sportType"`
	Version      int64           `gorm:"not null" json:"version"`
	Slots        []Slot          `gorm:"foreignKey:GroundID;constraint:OnDelete:CASCADE" json:"slots"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Slot belongs to exactly one ground and is only addressed through it.
type Slot struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	GroundID   string    `gorm:"index;size:36;not null" json:"-"`
	Position   int       `gorm:"not null" json:"-"`
	Date       time.Time `gorm:"index;not null" json:"date"`
	TimeSlot   string    `gorm:"size:32;not null" json:"timeSlot"`
	IsBooked   bool      `gorm:"not null" json:"isBooked"`
	BookedBy   *string   `gorm:"size:64" json:"bookedBy,omitempty"`
	BookingRef *string   `gorm:"size:36" json:"bookingRef,omitempty"`
}

func (Slot) TableName() string { return "ground_slots" }

func (g *Ground) Slot(id string) *Slot {
	for i := range g.Slots {
		if g.Slots[i].ID == id {
			return &g.Slots[i]
		}
	}
	return nil
}

// Available reports whether the slot can be offered for booking on or after from.
func (s Slot) Available(from time.Time) bool {
	return !s.IsBooked && !s.Date.Before(from)
}

// Consistent checks that the booked flag and both references agree.
func (s Slot) Consistent() bool {
	if s.IsBooked {
		return s.BookedBy != nil && s.BookingRef != nil
	}
	return s.BookedBy == nil && s.BookingRef == nil
}

// SlotInput is an owner-supplied slot definition. ID is set when editing an
// existing slot.
type SlotInput struct {
	ID       string
	Date     string
	TimeSlot string
}

func (in SlotInput) Validate() (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return time.Time{}, Validation("invalid slot date %q, expected YYYY-MM-DD", in.Date)
	}
	if !ValidTimeSlot(in.TimeSlot) {
		return time.Time{}, Validation("invalid time slot %q, expected e.g. \"10:00 AM - 11:00 AM\"", in.TimeSlot)
	}
	return d.UTC(), nil
}

// ValidateSlots checks every slot and rejects duplicate ids.
func ValidateSlots(in []SlotInput) error {
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, err := s.Validate(); err != nil {
			return err
		}
		if s.ID == "" {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			return Validation("duplicate slot id %s", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

func ValidatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return Validation("price per slot must be >= 0")
	}
	return nil
}
