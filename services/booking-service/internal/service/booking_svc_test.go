package service_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/service"
)

func TestBook_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g1 := f.seed(t, "10:00 AM - 11:00 AM")
	s1 := g1.Slots[0].ID

	r1, err := f.booking.Book(ctx, u1, g1.ID, s1)
	require.NoError(t, err)
	b1 := r1.Booking
	assert.Equal(t, domain.StatusConfirmed, b1.Status)
	assert.Equal(t, domain.PaymentSuccess, b1.PaymentStatus)
	assert.Equal(t, "10:00 AM - 11:00 AM", b1.TimeSlot)
	assert.Equal(t, "2025-06-01", b1.Date.Format(domain.DateLayout))
	assert.Equal(t, "500", r1.Ground.Price.String())
	assert.Equal(t, g1.Name, r1.Ground.Name)
	slot := f.slot(t, g1.ID, s1)
	assert.True(t, slot.IsBooked)
	assert.Equal(t, "U1", *slot.BookedBy)
	assert.Equal(t, b1.ID, *slot.BookingRef)

	_, err = f.booking.Book(ctx, u2, g1.ID, s1)
	assert.ErrorIs(t, err, domain.ErrConflict)

	cancelled, err := f.booking.Cancel(ctx, u1, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.False(t, f.slot(t, g1.ID, s1).IsBooked)
	assert.Equal(t, domain.StatusCancelled, f.bookingByID(t, b1.ID).Status)

	r2, err := f.booking.Book(ctx, u2, g1.ID, s1)
	require.NoError(t, err)
	assert.NotEqual(t, b1.ID, r2.Booking.ID)
	assert.Equal(t, r2.Booking.ID, *f.slot(t, g1.ID, s1).BookingRef)

	f.requireConsistent(t)
	assert.Equal(t, []string{domain.RKBookingCreated, domain.RKBookingCancelled, domain.RKBookingCreated}, f.pub.Keys())
}

func TestBook_NotFoundAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")

	_, err := f.booking.Book(ctx, u1, "missing", g.Slots[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.booking.Book(ctx, u1, g.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.booking.Book(ctx, u1, g.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.booking.Book(ctx, domain.Principal{}, g.ID, g.Slots[0].ID)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	all, err := f.stores.Bookings.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBook_SnapshotDoesNotFollowEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM", "11:00 AM - 12:00 PM")

	r, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.NoError(t, err)

	price := r.Ground.Price.Add(r.Ground.Price)
	_, err = f.grounds.Update(ctx, owner, g.ID, service.GroundInput{PricePerSlot: &price})
	require.NoError(t, err)

	got := f.bookingByID(t, r.Booking.ID)
	assert.Equal(t, "500", got.Price.String())
}

func TestBook_ConcurrentRequestsForOneSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	slotID := g.Slots[0].ID

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			p := domain.Principal{ID: "user-" + string(rune('a'+i)), Role: domain.RoleUser}
			_, err := f.booking.Book(ctx, p, g.ID, slotID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case domain.KindOf(err) == domain.KindConflict:
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	all, err := f.stores.Bookings.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	f.requireConsistent(t)
}

func TestBook_AtomicWhenSlotWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	faulty := service.NewBookingSvc(faultyScope(f.scope))

	_, err := faulty.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.ErrorIs(t, err, errBad)

	all, err := f.stores.Bookings.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "ledger entry must not outlive the failed slot write")
	assert.False(t, f.slot(t, g.ID, g.Slots[0].ID).IsBooked)
	f.requireConsistent(t)
}

func TestBook_LostSlotRaceIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	racing := service.NewBookingSvc(lostRaceScope(f.scope))

	_, err := racing.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	all, err := f.stores.Bookings.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "losing the slot write must roll back the ledger entry")
	assert.False(t, f.slot(t, g.ID, g.Slots[0].ID).IsBooked)
	f.requireConsistent(t)

	// the slot is still bookable through the real scope
	_, err = f.booking.Book(ctx, u2, g.ID, g.Slots[0].ID)
	require.NoError(t, err)
}

func TestCancel_AtomicWhenSlotReleaseFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	r, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.NoError(t, err)

	faulty := service.NewBookingSvc(faultyScope(f.scope))
	_, err = faulty.Cancel(ctx, u1, r.Booking.ID)
	require.ErrorIs(t, err, domain.ErrStorageFailure)

	assert.Equal(t, domain.StatusConfirmed, f.bookingByID(t, r.Booking.ID).Status)
	assert.True(t, f.slot(t, g.ID, g.Slots[0].ID).IsBooked)
	f.requireConsistent(t)
}

func TestBook_PaymentGate(t *testing.T) {
	ctx := context.Background()

	t.Run("declined aborts", func(t *testing.T) {
		f := newFixture(t, service.WithPaymentGate(service.PaymentGateFunc(
			func(context.Context, service.PaymentRequest) (domain.PaymentStatus, error) {
				return "", domain.Conflict("payment declined")
			})))
		g := f.seed(t, "10:00 AM - 11:00 AM")

		_, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.False(t, f.slot(t, g.ID, g.Slots[0].ID).IsBooked)
	})

	t.Run("untyped failure is conflict", func(t *testing.T) {
		f := newFixture(t, service.WithPaymentGate(service.PaymentGateFunc(
			func(context.Context, service.PaymentRequest) (domain.PaymentStatus, error) {
				return "", errBad
			})))
		g := f.seed(t, "10:00 AM - 11:00 AM")

		_, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
		require.ErrorIs(t, err, domain.ErrConflict)
		assert.NotErrorIs(t, err, domain.ErrStorageFailure)
		assert.ErrorIs(t, err, errBad)
		assert.False(t, f.slot(t, g.ID, g.Slots[0].ID).IsBooked)
	})

	t.Run("unknown status is validation", func(t *testing.T) {
		f := newFixture(t, service.WithPaymentGate(service.PaymentGateFunc(
			func(context.Context, service.PaymentRequest) (domain.PaymentStatus, error) {
				return domain.PaymentStatus("voided"), nil
			})))
		g := f.seed(t, "10:00 AM - 11:00 AM")

		_, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
		require.ErrorIs(t, err, domain.ErrValidation)
		all, err := f.stores.Bookings.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("pending recorded", func(t *testing.T) {
		var seen service.PaymentRequest
		f := newFixture(t, service.WithPaymentGate(service.PaymentGateFunc(
			func(_ context.Context, req service.PaymentRequest) (domain.PaymentStatus, error) {
				seen = req
				return domain.PaymentPending, nil
			})))
		g := f.seed(t, "10:00 AM - 11:00 AM")

		r, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, r.Booking.PaymentStatus)
		assert.Equal(t, "U1", seen.UserID)
		assert.Equal(t, "500", seen.Amount.String())
	})

	t.Run("not called for a booked slot", func(t *testing.T) {
		calls := 0
		f := newFixture(t, service.WithPaymentGate(service.PaymentGateFunc(
			func(context.Context, service.PaymentRequest) (domain.PaymentStatus, error) {
				calls++
				return domain.PaymentSuccess, nil
			})))
		g := f.seed(t, "10:00 AM - 11:00 AM")

		_, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
		require.NoError(t, err)
		_, err = f.booking.Book(ctx, u2, g.ID, g.Slots[0].ID)
		require.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, 1, calls)
	})
}

func TestCancel_AlreadyCancelledIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	r, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.NoError(t, err)
	_, err = f.booking.Cancel(ctx, u1, r.Booking.ID)
	require.NoError(t, err)

	// someone else takes the freed slot
	r2, err := f.booking.Book(ctx, u2, g.ID, g.Slots[0].ID)
	require.NoError(t, err)
	beforeSlot := f.slot(t, g.ID, g.Slots[0].ID)
	beforeBooking := f.bookingByID(t, r.Booking.ID)

	_, err = f.booking.Cancel(ctx, u1, r.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.Equal(t, beforeSlot, f.slot(t, g.ID, g.Slots[0].ID))
	assert.Equal(t, beforeBooking.Status, f.bookingByID(t, r.Booking.ID).Status)
	assert.Equal(t, r2.Booking.ID, *f.slot(t, g.ID, g.Slots[0].ID).BookingRef)
	f.requireConsistent(t)
}

func TestTerminalStates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM", "11:00 AM - 12:00 PM")

	done, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.NoError(t, err)
	completed, err := f.booking.Complete(ctx, owner, done.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	// a completed booking still holds its slot
	assert.True(t, f.slot(t, g.ID, g.Slots[0].ID).IsBooked)

	for _, to := range []domain.BookingStatus{domain.StatusCancelled, domain.StatusCompleted, domain.StatusConfirmed} {
		_, err := f.booking.SetStatus(ctx, owner, done.Booking.ID, to)
		assert.ErrorIs(t, err, domain.ErrConflict, "completed -> %s", to)
	}
	_, err = f.booking.Cancel(ctx, u1, done.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.StatusCompleted, f.bookingByID(t, done.Booking.ID).Status)

	gone, err := f.booking.Book(ctx, u1, g.ID, g.Slots[1].ID)
	require.NoError(t, err)
	_, err = f.booking.Cancel(ctx, u1, gone.Booking.ID)
	require.NoError(t, err)
	for _, to := range []domain.BookingStatus{domain.StatusCancelled, domain.StatusCompleted, domain.StatusConfirmed} {
		_, err := f.booking.SetStatus(ctx, owner, gone.Booking.ID, to)
		assert.ErrorIs(t, err, domain.ErrConflict, "cancelled -> %s", to)
	}
	assert.Equal(t, domain.StatusCancelled, f.bookingByID(t, gone.Booking.ID).Status)
	f.requireConsistent(t)
}

func TestCancel_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	r, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.NoError(t, err)

	_, err = f.booking.Cancel(ctx, u2, r.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.booking.Cancel(ctx, rival, r.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.booking.Cancel(ctx, u1, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := f.booking.Cancel(ctx, owner, r.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, out.Status)
	assert.False(t, f.slot(t, g.ID, g.Slots[0].ID).IsBooked)
}

func TestSetStatus_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	r, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.NoError(t, err)

	_, err = f.booking.SetStatus(ctx, u1, r.Booking.ID, domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.booking.SetStatus(ctx, rival, r.Booking.ID, domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.booking.SetStatus(ctx, owner, r.Booking.ID, "archived")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.booking.SetStatus(ctx, owner, "missing", domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := f.booking.SetStatus(ctx, owner, r.Booking.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, out.Status)
	slot := f.slot(t, g.ID, g.Slots[0].ID)
	assert.False(t, slot.IsBooked)
	assert.Nil(t, slot.BookingRef)
	f.requireConsistent(t)
}

func TestCancel_AfterGroundDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.seed(t, "10:00 AM - 11:00 AM")
	r, err := f.booking.Book(ctx, u1, g.ID, g.Slots[0].ID)
	require.NoError(t, err)
	require.NoError(t, f.grounds.Delete(ctx, owner, g.ID))

	out, err := f.booking.Cancel(ctx, u1, r.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, out.Status)

	_, err = f.booking.SetStatus(ctx, owner, r.Booking.ID, domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Random book/cancel/complete sequences must leave slots and ledger in agreement.
func TestInvariant_RandomSequences(t *testing.T) {
	ctx := context.Background()
	for seed := int64(1); seed <= 5; seed++ {
		f := newFixture(t)
		rng := rand.New(rand.NewSource(seed))
		var ground []*domain.Ground
		for i := 0; i < 2; i++ {
			ground = append(ground, f.seed(t, "8:00 AM - 9:00 AM", "9:00 AM - 10:00 AM", "10:00 AM - 11:00 AM"))
		}
		users := []domain.Principal{u1, u2, {ID: "U3", Role: domain.RoleUser}}
		var made []domain.Booking

		for step := 0; step < 120; step++ {
			var err error
			switch op := rng.Intn(10); {
			case op < 5 || len(made) == 0:
				g := ground[rng.Intn(len(ground))]
				s := g.Slots[rng.Intn(len(g.Slots))]
				var r *service.Receipt
				r, err = f.booking.Book(ctx, users[rng.Intn(len(users))], g.ID, s.ID)
				if err == nil {
					made = append(made, r.Booking)
				}
			case op < 8:
				b := made[rng.Intn(len(made))]
				by := users[rng.Intn(len(users))]
				if rng.Intn(2) == 0 {
					by = domain.Principal{ID: b.UserID, Role: domain.RoleUser}
				}
				_, err = f.booking.Cancel(ctx, by, b.ID)
			default:
				b := made[rng.Intn(len(made))]
				_, err = f.booking.Complete(ctx, owner, b.ID)
			}
			if err != nil {
				k := domain.KindOf(err)
				require.Contains(t, []domain.Kind{domain.KindConflict, domain.KindNotFound}, k, "seed %d step %d: %v", seed, step, err)
			}
		}
		f.requireConsistent(t)
	}
}
