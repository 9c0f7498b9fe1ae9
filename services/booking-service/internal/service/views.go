package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klaus2514/Sportsafari/pkg/clock"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

// Placeholders for bookings whose ground has been deleted.
const (
	UnknownGround    = "Unknown Ground"
	DefaultImage     = "/default-ground.jpg"
	UnknownLocation  = "Unknown location"
	UnknownSportType = "Unknown sport"
)

func placeholderGround() GroundSnapshot {
	return GroundSnapshot{Name: UnknownGround, Image: DefaultImage, Location: UnknownLocation, SportType: UnknownSportType}
}

// ViewSvc serves read-only projections. Reads take no locks.
type ViewSvc struct {
	stores domain.Stores
	options
}

func NewViewSvc(stores domain.Stores, opts ...Option) *ViewSvc {
	return &ViewSvc{stores: stores, options: buildOptions(opts)}
}

func (v *ViewSvc) today() time.Time { return clock.StartOfDay(v.clock.Now()) }

func availableOnly(g *domain.Ground, from time.Time) {
	kept := g.Slots[:0]
	for _, s := range g.Slots {
		if s.Available(from) {
			kept = append(kept, s)
		}
	}
	g.Slots = kept
}

// AvailableGrounds lists grounds of a sport that still have an open slot
// today or later, with every other slot stripped. Empty sport means all.
func (v *ViewSvc) AvailableGrounds(ctx context.Context, sport string) ([]domain.Ground, error) {
	var st domain.SportType
	if sport != "" {
		var ok bool
		if st, ok = domain.ParseSport(sport); !ok {
			return nil, domain.Validation("unknown sport type %q", sport)
		}
	}
	today := v.today()
	gs, err := v.stores.Grounds.FindAvailableBySport(ctx, st, today)
	if err != nil {
		return nil, err
	}
	out := gs[:0]
	for i := range gs {
		availableOnly(&gs[i], today)
		if len(gs[i].Slots) > 0 {
			out = append(out, gs[i])
		}
	}
	return out, nil
}

func (v *ViewSvc) GroundDetail(ctx context.Context, id string) (*domain.Ground, error) {
	g, err := v.stores.Grounds.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	availableOnly(g, v.today())
	return g, nil
}

type SlotBookingInfo struct {
	Status   domain.BookingStatus `json:"status"`
	BookedAt time.Time            `json:"bookedAt"`
}

type CatalogSlot struct {
	domain.Slot
	BookingInfo *SlotBookingInfo `json:"bookingInfo"`
}

type CatalogEntry struct {
	Ground           domain.Ground `json:"ground"`
	Slots            []CatalogSlot `json:"slots"`
	BookedSlotsCount int           `json:"bookedSlotsCount"`
}

// Catalog lists every ground with all slots, each annotated with its active
// booking if there is one.
func (v *ViewSvc) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	gs, err := v.stores.Grounds.All(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(gs))
	for _, g := range gs {
		ids = append(ids, g.ID)
	}
	bs, err := v.stores.Bookings.FindByGroundSet(ctx, ids)
	if err != nil {
		return nil, err
	}
	active := make(map[string]domain.Booking, len(bs))
	for _, b := range bs {
		if b.Status == domain.StatusConfirmed {
			active[b.SlotID] = b
		}
	}

	out := make([]CatalogEntry, 0, len(gs))
	for _, g := range gs {
		e := CatalogEntry{Ground: g, Slots: make([]CatalogSlot, 0, len(g.Slots))}
		for _, s := range g.Slots {
			cs := CatalogSlot{Slot: s}
			if b, ok := active[s.ID]; ok {
				cs.BookingInfo = &SlotBookingInfo{Status: b.Status, BookedAt: b.CreatedAt}
			}
			if s.IsBooked {
				e.BookedSlotsCount++
			}
			e.Slots = append(e.Slots, cs)
		}
		out = append(out, e)
	}
	return out, nil
}

type BookingView struct {
	Booking domain.Booking `json:"booking"`
	Ground  GroundSnapshot `json:"ground"`
}

func (v *ViewSvc) withGrounds(ctx context.Context, bs []domain.Booking) ([]BookingView, error) {
	seen := map[string]struct{}{}
	var ids []string
	for _, b := range bs {
		if _, ok := seen[b.GroundID]; !ok {
			seen[b.GroundID] = struct{}{}
			ids = append(ids, b.GroundID)
		}
	}
	gs, err := v.stores.Grounds.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]GroundSnapshot, len(gs))
	for i := range gs {
		byID[gs[i].ID] = snapshotOf(&gs[i])
	}
	out := make([]BookingView, 0, len(bs))
	for _, b := range bs {
		snap, ok := byID[b.GroundID]
		if !ok {
			snap = placeholderGround()
		}
		out = append(out, BookingView{Booking: b, Ground: snap})
	}
	return out, nil
}

// MyBookings lists the caller's non-cancelled bookings. Deleted grounds show
// placeholder display data instead of failing the listing.
func (v *ViewSvc) MyBookings(ctx context.Context, p domain.Principal) ([]BookingView, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	bs, err := v.stores.Bookings.FindByPrincipal(ctx, p.ID, false)
	if err != nil {
		return nil, err
	}
	return v.withGrounds(ctx, bs)
}

// OwnerBookings lists every booking on grounds the caller currently owns.
func (v *ViewSvc) OwnerBookings(ctx context.Context, p domain.Principal) ([]BookingView, error) {
	if err := p.RequireOwner(); err != nil {
		return nil, err
	}
	gs, err := v.stores.Grounds.FindByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if len(gs) == 0 {
		return []BookingView{}, nil
	}
	ids := make([]string, 0, len(gs))
	for _, g := range gs {
		ids = append(ids, g.ID)
	}
	bs, err := v.stores.Bookings.FindByGroundSet(ctx, ids)
	if err != nil {
		return nil, err
	}
	return v.withGrounds(ctx, bs)
}

type GroundRevenue struct {
	GroundID   string          `json:"groundId"`
	GroundName string          `json:"groundName"`
	Revenue    decimal.Decimal `json:"revenue"`
	Bookings   int             `json:"bookings"`
}

type Revenue struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalBookings int             `json:"totalBookings"`
	ByGround      []GroundRevenue `json:"byGround"`
}

// OwnerRevenue sums confirmed, successfully paid bookings per owned ground.
func (v *ViewSvc) OwnerRevenue(ctx context.Context, p domain.Principal) (*Revenue, error) {
	if err := p.RequireOwner(); err != nil {
		return nil, err
	}
	rev := &Revenue{TotalRevenue: decimal.Zero, ByGround: []GroundRevenue{}}
	gs, err := v.stores.Grounds.FindByOwner(ctx, p.ID)
	if err != nil || len(gs) == 0 {
		return rev, err
	}
	names := make(map[string]string, len(gs))
	ids := make([]string, 0, len(gs))
	for _, g := range gs {
		names[g.ID] = g.Name
		ids = append(ids, g.ID)
	}
	bs, err := v.stores.Bookings.FindByGroundSet(ctx, ids)
	if err != nil {
		return nil, err
	}

	per := map[string]*GroundRevenue{}
	for _, b := range bs {
		if b.Status != domain.StatusConfirmed || b.PaymentStatus != domain.PaymentSuccess {
			continue
		}
		gr, ok := per[b.GroundID]
		if !ok {
			gr = &GroundRevenue{GroundID: b.GroundID, GroundName: names[b.GroundID], Revenue: decimal.Zero}
			per[b.GroundID] = gr
		}
		gr.Revenue = gr.Revenue.Add(b.Price)
		gr.Bookings++
		rev.TotalRevenue = rev.TotalRevenue.Add(b.Price)
		rev.TotalBookings++
	}
	for _, gr := range per {
		rev.ByGround = append(rev.ByGround, *gr)
	}
	sort.Slice(rev.ByGround, func(i, j int) bool { return rev.ByGround[i].GroundName < rev.ByGround[j].GroundName })
	return rev, nil
}

// BookingFor returns one of p's own bookings with display data.
func (v *ViewSvc) BookingFor(ctx context.Context, p domain.Principal, id string) (*BookingView, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	b, err := v.stores.Bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != p.ID {
		return nil, domain.NotFound("booking %s not found", id)
	}
	out, err := v.withGrounds(ctx, []domain.Booking{*b})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}
