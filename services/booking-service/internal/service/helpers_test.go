package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/klaus2514/Sportsafari/pkg/clock"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/repository"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/service"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/testutil"
)

var (
	u1     = domain.Principal{ID: "U1", Role: domain.RoleUser}
	u2     = domain.Principal{ID: "U2", Role: domain.RoleUser}
	owner  = domain.Principal{ID: "O1", Role: domain.RoleOwner}
	rival  = domain.Principal{ID: "O2", Role: domain.RoleOwner}
	today  = clock.NewFixed(testutil.Day("2025-05-20"))
	errBad = errors.New("injected storage fault")
)

type fixture struct {
	db      *gorm.DB
	stores  domain.Stores
	scope   domain.TransactionScope
	pub     *recordingPublisher
	booking *service.BookingSvc
	grounds *service.GroundSvc
	views   *service.ViewSvc
	audit   *service.Auditor
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	f := &fixture{
		db:     gdb,
		stores: repository.NewStores(gdb),
		scope:  repository.NewTxScope(gdb),
		pub:    &recordingPublisher{},
	}
	opts = append([]service.Option{service.WithPublisher(f.pub), service.WithClock(today)}, opts...)
	f.booking = service.NewBookingSvc(f.scope, opts...)
	f.grounds = service.NewGroundSvc(f.scope, f.stores, opts...)
	f.views = service.NewViewSvc(f.stores, opts...)
	f.audit = service.NewAuditor(f.stores, opts...)
	return f
}

// seed creates a ground owned by O1 with slots on 2025-06-01.
func (f *fixture) seed(t *testing.T, ranges ...string) *domain.Ground {
	t.Helper()
	return testutil.SeedGround(t, f.db, owner.ID, "2025-06-01", 500, ranges...)
}

func (f *fixture) slot(t *testing.T, groundID, slotID string) domain.Slot {
	t.Helper()
	g, err := f.stores.Grounds.FindByID(context.Background(), groundID)
	require.NoError(t, err)
	s := g.Slot(slotID)
	require.NotNil(t, s)
	return *s
}

func (f *fixture) bookingByID(t *testing.T, id string) *domain.Booking {
	t.Helper()
	b, err := f.stores.Bookings.FindByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	r, err := f.audit.Audit(context.Background())
	require.NoError(t, err)
	require.True(t, r.OK(), "violations: %+v", r.Violations)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// wrappedScope runs fn in a real transaction with the ground store swapped
// for a fault-injecting wrapper.
type wrappedScope struct {
	inner domain.TransactionScope
	wrap  func(domain.GroundStore) domain.GroundStore
}

func (s wrappedScope) Execute(ctx context.Context, fn func(domain.Stores) error) error {
	return s.inner.Execute(ctx, func(st domain.Stores) error {
		st.Grounds = s.wrap(st.Grounds)
		return fn(st)
	})
}

// faultyScope makes every slot write fail.
func faultyScope(inner domain.TransactionScope) domain.TransactionScope {
	return wrappedScope{inner: inner, wrap: func(g domain.GroundStore) domain.GroundStore {
		return failingSlotWrites{GroundStore: g}
	}}
}

// lostRaceScope makes every guarded slot write match no row, as if another
// writer got there first.
func lostRaceScope(inner domain.TransactionScope) domain.TransactionScope {
	return wrappedScope{inner: inner, wrap: func(g domain.GroundStore) domain.GroundStore {
		return staleSlotWrites{GroundStore: g}
	}}
}

// halfCreateScope inserts the ground and then fails, leaving rollback to the scope.
func halfCreateScope(inner domain.TransactionScope) domain.TransactionScope {
	return wrappedScope{inner: inner, wrap: func(g domain.GroundStore) domain.GroundStore {
		return failingCreate{GroundStore: g}
	}}
}

type failingSlotWrites struct {
	domain.GroundStore
}

func (failingSlotWrites) UpdateSlotFields(context.Context, string, string, domain.SlotGuard, domain.SlotPatch) (bool, error) {
	return false, errBad
}

type staleSlotWrites struct {
	domain.GroundStore
}

func (staleSlotWrites) UpdateSlotFields(context.Context, string, string, domain.SlotGuard, domain.SlotPatch) (bool, error) {
	return false, nil
}

type failingCreate struct {
	domain.GroundStore
}

func (w failingCreate) Create(ctx context.Context, g *domain.Ground) error {
	if err := w.GroundStore.Create(ctx, g); err != nil {
		return err
	}
	return errBad
}
