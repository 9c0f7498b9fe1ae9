package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

type Violation struct {
	GroundID  string `json:"groundId"`
	SlotID    string `json:"slotId"`
	BookingID string `json:"bookingId,omitempty"`
	Reason    string `json:"reason"`
}

type AuditReport struct {
	Grounds    int         `json:"grounds"`
	Bookings   int         `json:"bookings"`
	Violations []Violation `json:"violations"`
	// Dangling lists active bookings whose ground was deleted.
	Dangling []string `json:"dangling"`
}

func (r *AuditReport) OK() bool { return len(r.Violations) == 0 }

type Auditor struct {
	stores domain.Stores
	options
}

func NewAuditor(stores domain.Stores, opts ...Option) *Auditor {
	return &Auditor{stores: stores, options: buildOptions(opts)}
}

// Audit scans every ground and booking and checks that a slot is booked
// exactly when an active booking references it.
func (a *Auditor) Audit(ctx context.Context) (*AuditReport, error) {
	gs, err := a.stores.Grounds.All(ctx)
	if err != nil {
		return nil, err
	}
	bs, err := a.stores.Bookings.All(ctx)
	if err != nil {
		return nil, err
	}
	r := &AuditReport{Grounds: len(gs), Bookings: len(bs)}

	type slotKey struct{ ground, slot string }
	slots := map[slotKey]domain.Slot{}
	grounds := map[string]struct{}{}
	for _, g := range gs {
		grounds[g.ID] = struct{}{}
		for _, s := range g.Slots {
			slots[slotKey{g.ID, s.ID}] = s
			if !s.Consistent() {
				r.Violations = append(r.Violations, Violation{GroundID: g.ID, SlotID: s.ID, Reason: "booked flag and references disagree"})
			}
		}
	}

	claimed := map[slotKey]string{}
	for _, b := range bs {
		if !b.Status.Active() {
			continue
		}
		k := slotKey{b.GroundID, b.SlotID}
		if _, ok := grounds[b.GroundID]; !ok {
			r.Dangling = append(r.Dangling, b.ID)
			continue
		}
		if prev, dup := claimed[k]; dup {
			r.Violations = append(r.Violations, Violation{GroundID: b.GroundID, SlotID: b.SlotID, BookingID: b.ID,
				Reason: fmt.Sprintf("slot also claimed by booking %s", prev)})
			continue
		}
		claimed[k] = b.ID
		s, ok := slots[k]
		switch {
		case !ok:
			r.Violations = append(r.Violations, Violation{GroundID: b.GroundID, SlotID: b.SlotID, BookingID: b.ID, Reason: "active booking references a missing slot"})
		case !s.IsBooked:
			r.Violations = append(r.Violations, Violation{GroundID: b.GroundID, SlotID: b.SlotID, BookingID: b.ID, Reason: "active booking on an unbooked slot"})
		case s.BookingRef == nil || *s.BookingRef != b.ID:
			r.Violations = append(r.Violations, Violation{GroundID: b.GroundID, SlotID: b.SlotID, BookingID: b.ID, Reason: "slot references another booking"})
		}
	}

	for k, s := range slots {
		if !s.IsBooked {
			continue
		}
		if _, ok := claimed[k]; !ok {
			r.Violations = append(r.Violations, Violation{GroundID: k.ground, SlotID: k.slot, Reason: "booked slot without an active booking"})
		}
	}
	a.metrics.audited(r)
	return r, nil
}

// Run audits every interval until ctx is done.
func (a *Auditor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r, err := a.Audit(ctx)
			if err != nil {
				a.log.Error("consistency audit failed", zap.Error(err))
				continue
			}
			if !r.OK() {
				a.log.Error("consistency audit found violations",
					zap.Int("violations", len(r.Violations)),
					zap.Any("details", r.Violations))
				continue
			}
			a.log.Debug("consistency audit passed",
				zap.Int("grounds", r.Grounds),
				zap.Int("bookings", r.Bookings),
				zap.Int("dangling", len(r.Dangling)))
		}
	}
}
