package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

type GroundRepo struct{ db *gorm.DB }

func NewGroundRepo(db *gorm.DB) *GroundRepo {
	return &GroundRepo{db: db}
}

var _ domain.GroundStore = (*GroundRepo)(nil)

func orderedSlots(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *GroundRepo) Create(ctx context.Context, g *domain.Ground) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Version == 0 {
		g.Version = 1
	}
	for i := range g.Slots {
		s := &g.Slots[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.GroundID = g.ID
		s.Position = i
	}
	return translate("create ground", "ground", r.db.WithContext(ctx).Create(g).Error)
}

func (r *GroundRepo) FindByID(ctx context.Context, id string) (*domain.Ground, error) {
	var g domain.Ground
	err := r.db.WithContext(ctx).Preload("Slots", orderedSlots).First(&g, "id = ?", id).Error
	if err != nil {
		return nil, translate("load ground", "ground "+id, err)
	}
	return &g, nil
}

func (r *GroundRepo) FindByIDForUpdate(ctx context.Context, id string) (*domain.Ground, error) {
	var g domain.Ground
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Slots", orderedSlots).
		First(&g, "id = ?", id).Error
	if err != nil {
		return nil, translate("lock ground", "ground "+id, err)
	}
	return &g, nil
}

func (r *GroundRepo) UpdateSlotFields(ctx context.Context, groundID, slotID string, guard domain.SlotGuard, patch domain.SlotPatch) (bool, error) {
	q := r.db.WithContext(ctx).Model(&domain.Slot{}).Where("id = ? AND ground_id = ?", slotID, groundID)
	if guard.IsBooked != nil {
		q = q.Where("is_booked = ?", *guard.IsBooked)
	}
	if guard.BookingRef != nil {
		q = q.Where("booking_ref = ?", *guard.BookingRef)
	}
	res := q.Updates(map[string]any{
		"is_booked":   patch.IsBooked,
		"booked_by":   patch.BookedBy,
		"booking_ref": patch.BookingRef,
	})
	if res.Error != nil {
		return false, translate("update slot", "slot "+slotID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Save writes ground attributes under an optimistic version check and syncs
// the slot collection. Booking fields are never written here: booked slots
// must come back unchanged and only unbooked slots may be edited or dropped.
func (r *GroundRepo) Save(ctx context.Context, g *domain.Ground) error {
	db := r.db.WithContext(ctx)
	amenities, err := json.Marshal(g.Amenities)
	if err != nil {
		return domain.Validation("invalid amenities: %v", err)
	}
	res := db.Model(&domain.Ground{}).
		Where("id = ? AND version = ?", g.ID, g.Version).
		Updates(map[string]any{
			"name":           g.Name,
			"description":    g.Description,
			"location":       g.Location,
			"price_per_slot": g.PricePerSlot,
			"image":          g.Image,
			"capacity":       g.Capacity,
			"amenities":      string(amenities),
			"sport_type":     g.SportType,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     r.db.NowFunc(),
		})
	if res.Error != nil {
		return translate("save ground", "ground "+g.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Conflict("ground %s was modified concurrently", g.ID)
	}
	g.Version++

	var current []domain.Slot
	if err := db.Where("ground_id = ?", g.ID).Find(&current).Error; err != nil {
		return translate("load slots", "ground "+g.ID, err)
	}
	byID := make(map[string]domain.Slot, len(current))
	for _, s := range current {
		byID[s.ID] = s
	}

	keep := make(map[string]struct{}, len(g.Slots))
	for i := range g.Slots {
		s := &g.Slots[i]
		s.GroundID = g.ID
		s.Position = i
		old, exists := byID[s.ID]
		if !exists {
			// unknown ids are never trusted as primary keys
			s.ID = uuid.NewString()
			s.IsBooked, s.BookedBy, s.BookingRef = false, nil, nil
			if err := db.Create(s).Error; err != nil {
				return translate("insert slot", "slot "+s.ID, err)
			}
			keep[s.ID] = struct{}{}
			continue
		}
		keep[s.ID] = struct{}{}
		s.IsBooked, s.BookedBy, s.BookingRef = old.IsBooked, old.BookedBy, old.BookingRef
		if old.IsBooked {
			if !old.Date.Equal(s.Date) || old.TimeSlot != s.TimeSlot {
				return domain.Conflict("slot %s is booked and cannot be changed", s.ID)
			}
			if err := db.Model(&domain.Slot{}).Where("id = ?", s.ID).Update("position", i).Error; err != nil {
				return translate("reorder slot", "slot "+s.ID, err)
			}
			continue
		}
		res := db.Model(&domain.Slot{}).
			Where("id = ? AND is_booked = ?", s.ID, false).
			Updates(map[string]any{"date": s.Date, "time_slot": s.TimeSlot, "position": i})
		if res.Error != nil {
			return translate("update slot", "slot "+s.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.Conflict("slot %s was booked while editing", s.ID)
		}
	}

	for id, old := range byID {
		if _, ok := keep[id]; ok {
			continue
		}
		if old.IsBooked {
			return domain.Conflict("slot %s is booked and cannot be removed", id)
		}
		res := db.Where("id = ? AND is_booked = ?", id, false).Delete(&domain.Slot{})
		if res.Error != nil {
			return translate("delete slot", "slot "+id, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.Conflict("slot %s was booked while editing", id)
		}
	}
	return nil
}

// Delete removes the ground and its slots. Bookings stay in the ledger.
func (r *GroundRepo) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("ground_id = ?", id).Delete(&domain.Slot{}).Error; err != nil {
		return translate("delete slots", "ground "+id, err)
	}
	res := db.Delete(&domain.Ground{}, "id = ?", id)
	if res.Error != nil {
		return translate("delete ground", "ground "+id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("ground %s not found", id)
	}
	return nil
}

// FindAvailableBySport returns grounds having at least one unbooked slot on
// or after from. Slots are not filtered here.
func (r *GroundRepo) FindAvailableBySport(ctx context.Context, sport domain.SportType, from time.Time) ([]domain.Ground, error) {
	sub := r.db.Model(&domain.Slot{}).
		Select("1").
		Where("ground_slots.ground_id = grounds.id AND ground_slots.is_booked = ? AND ground_slots.date >= ?", false, from)
	q := r.db.WithContext(ctx).Model(&domain.Ground{}).Where("EXISTS (?)", sub)
	if sport != "" {
		q = q.Where("sport_type = ?", sport)
	}
	var out []domain.Ground
	if err := q.Preload("Slots", orderedSlots).Order("name ASC").Find(&out).Error; err != nil {
		return nil, translate("list available grounds", "grounds", err)
	}
	return out, nil
}

func (r *GroundRepo) FindByOwner(ctx context.Context, ownerID string) ([]domain.Ground, error) {
	var out []domain.Ground
	err := r.db.WithContext(ctx).Preload("Slots", orderedSlots).
		Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, translate("list owner grounds", "grounds", err)
	}
	return out, nil
}

func (r *GroundRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Ground, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Ground
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, translate("load grounds", "grounds", err)
	}
	return out, nil
}

func (r *GroundRepo) All(ctx context.Context) ([]domain.Ground, error) {
	var out []domain.Ground
	if err := r.db.WithContext(ctx).Preload("Slots", orderedSlots).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, translate("list grounds", "grounds", err)
	}
	return out, nil
}
