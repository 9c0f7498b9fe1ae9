package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/klaus2514/Sportsafari/pkg/db"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/repository"
)

// NewDB opens a private in-memory SQLite database with the schema migrated.
// A single connection serializes transactions the way row locks do in Postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), db.Config(db.Options{}))
	require.NoError(t, err)
	require.NoError(t, db.Configure(gdb, db.Options{MaxOpenConns: 1}))
	require.NoError(t, repository.Migrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// Day parses a YYYY-MM-DD date in UTC.
func Day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// SeedGround stores a ground owned by ownerID with one unbooked slot per time range on date.
func SeedGround(t testing.TB, gdb *gorm.DB, ownerID, date string, price int64, ranges ...string) *domain.Ground {
	t.Helper()
	g := &domain.Ground{
		Name:         "Ground " + uuid.NewString()[:8],
		Location:     "Riverside",
		OwnerID:      ownerID,
		PricePerSlot: decimal.NewFromInt(price),
		Capacity:     10,
		Amenities:    []string{"parking"},
		SportType:    domain.SportFootball,
	}
	for _, r := range ranges {
		g.Slots = append(g.Slots, domain.Slot{Date: Day(date), TimeSlot: r})
	}
	require.NoError(t, repository.NewGroundRepo(gdb).Create(t.Context(), g))
	return g
}
