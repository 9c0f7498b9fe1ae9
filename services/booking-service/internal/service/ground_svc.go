package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

// GroundInput carries owner edits. On update, zero values keep the current
// value and a nil Slots leaves the schedule alone.
type GroundInput struct {
	Name         string
	Description  string
	Location     string
	Image        string
	PricePerSlot *decimal.Decimal
	Capacity     *int
	Amenities    []string
	SportType    string
	Slots        []domain.SlotInput
}

type GroundSvc struct {
	scope  domain.TransactionScope
	stores domain.Stores
	options
}

func NewGroundSvc(scope domain.TransactionScope, stores domain.Stores, opts ...Option) *GroundSvc {
	return &GroundSvc{scope: scope, stores: stores, options: buildOptions(opts)}
}

func buildSlots(in []domain.SlotInput) ([]domain.Slot, error) {
	if err := domain.ValidateSlots(in); err != nil {
		return nil, err
	}
	out := make([]domain.Slot, 0, len(in))
	for _, s := range in {
		d, _ := s.Validate()
		out = append(out, domain.Slot{ID: s.ID, Date: d, TimeSlot: s.TimeSlot})
	}
	return out, nil
}

func (s *GroundSvc) Create(ctx context.Context, p domain.Principal, in GroundInput) (*domain.Ground, error) {
	if err := p.RequireOwner(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Location) == "" {
		return nil, domain.Validation("name and location are required")
	}
	if in.PricePerSlot == nil {
		return nil, domain.Validation("pricePerSlot is required")
	}
	if err := domain.ValidatePrice(*in.PricePerSlot); err != nil {
		return nil, err
	}
	sport, ok := domain.ParseSport(in.SportType)
	if !ok {
		return nil, domain.Validation("unknown sport type %q", in.SportType)
	}
	capacity := 0
	if in.Capacity != nil {
		capacity = *in.Capacity
	}
	if capacity < 0 {
		return nil, domain.Validation("capacity must be >= 0")
	}
	slots, err := buildSlots(in.Slots)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].ID = "" // new grounds always mint slot ids
	}

	g := &domain.Ground{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Location:     strings.TrimSpace(in.Location),
		OwnerID:      p.ID,
		PricePerSlot: *in.PricePerSlot,
		Image:        in.Image,
		Capacity:     capacity,
		Amenities:    in.Amenities,
		SportType:    sport,
		Slots:        slots,
	}
	// ground and slot rows land together or not at all
	err = s.scope.Execute(ctx, func(st domain.Stores) error {
		return st.Grounds.Create(ctx, g)
	})
	if err != nil {
		s.log.Error("create ground failed", zap.String("owner", p.ID), zap.Error(err))
		return nil, err
	}
	s.log.Info("ground created", zap.String("ground_id", g.ID), zap.String("owner", p.ID), zap.Int("slots", len(g.Slots)))
	return g, nil
}

// Update applies an owner edit under the ground row lock, so it serializes
// with Book on the same ground.
func (s *GroundSvc) Update(ctx context.Context, p domain.Principal, id string, in GroundInput) (*domain.Ground, error) {
	if err := p.RequireOwner(); err != nil {
		return nil, err
	}
	var slots []domain.Slot
	if in.Slots != nil {
		var err error
		if slots, err = buildSlots(in.Slots); err != nil {
			return nil, err
		}
	}
	if in.PricePerSlot != nil {
		if err := domain.ValidatePrice(*in.PricePerSlot); err != nil {
			return nil, err
		}
	}
	if in.Capacity != nil && *in.Capacity < 0 {
		return nil, domain.Validation("capacity must be >= 0")
	}
	var sport domain.SportType
	if in.SportType != "" {
		var ok bool
		if sport, ok = domain.ParseSport(in.SportType); !ok {
			return nil, domain.Validation("unknown sport type %q", in.SportType)
		}
	}

	var out *domain.Ground
	err := s.scope.Execute(ctx, func(st domain.Stores) error {
		g, err := st.Grounds.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if g.OwnerID != p.ID {
			return domain.Unauthorized("not your ground")
		}
		if v := strings.TrimSpace(in.Name); v != "" {
			g.Name = v
		}
		if v := strings.TrimSpace(in.Location); v != "" {
			g.Location = v
		}
		if in.Description != "" {
			g.Description = in.Description
		}
		if in.Image != "" {
			g.Image = in.Image
		}
		if in.PricePerSlot != nil {
			g.PricePerSlot = *in.PricePerSlot
		}
		if in.Capacity != nil {
			g.Capacity = *in.Capacity
		}
		if in.Amenities != nil {
			g.Amenities = in.Amenities
		}
		if sport != "" {
			g.SportType = sport
		}
		if in.Slots != nil {
			g.Slots = slots
		}
		if err := st.Grounds.Save(ctx, g); err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		s.log.Warn("update ground rejected", zap.String("ground_id", id), zap.String("owner", p.ID), zap.Error(err))
		return nil, err
	}
	s.log.Info("ground updated", zap.String("ground_id", id), zap.Int64("version", out.Version))
	return out, nil
}

// Delete removes a ground and its slots. Existing bookings are left as they
// are and show placeholder ground data from then on.
func (s *GroundSvc) Delete(ctx context.Context, p domain.Principal, id string) error {
	if err := p.RequireOwner(); err != nil {
		return err
	}
	err := s.scope.Execute(ctx, func(st domain.Stores) error {
		g, err := st.Grounds.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if g.OwnerID != p.ID {
			return domain.Unauthorized("not your ground")
		}
		return st.Grounds.Delete(ctx, id)
	})
	if err != nil {
		s.log.Warn("delete ground rejected", zap.String("ground_id", id), zap.String("owner", p.ID), zap.Error(err))
		return err
	}
	s.log.Info("ground deleted", zap.String("ground_id", id), zap.String("owner", p.ID))
	return nil
}

func (s *GroundSvc) OwnerGrounds(ctx context.Context, p domain.Principal) ([]domain.Ground, error) {
	if err := p.RequireOwner(); err != nil {
		return nil, err
	}
	return s.stores.Grounds.FindByOwner(ctx, p.ID)
}
