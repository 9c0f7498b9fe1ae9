package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func TestGroundRepo_FindByIDForUpdate_LocksRow(t *testing.T) {
	gdb, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "grounds" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "owner_id", "version"}).AddRow("g1", "Arena", "o1", 3))
	mock.ExpectQuery(`SELECT \* FROM "ground_slots" WHERE "ground_slots"."ground_id" = \$1`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ground_id", "position", "time_slot", "is_booked"}).
			AddRow("s1", "g1", 0, "10:00 AM - 11:00 AM", false))

	g, err := NewGroundRepo(gdb).FindByIDForUpdate(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), g.Version)
	require.Len(t, g.Slots, 1)
	assert.Equal(t, "s1", g.Slots[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroundRepo_UpdateSlotFields_GuardedUpdate(t *testing.T) {
	gdb, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectExec(`UPDATE "ground_slots" SET .* WHERE .*id = \$\d+ AND ground_id = \$\d+.* AND is_booked = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	booked := false
	ok, err := NewGroundRepo(gdb).UpdateSlotFields(context.Background(), "g1", "s1",
		domain.SlotGuard{IsBooked: &booked}, domain.BookedBy("u1", "b1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_StorageErrorsAreClassified(t *testing.T) {
	gdb, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1`).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := NewBookingRepo(gdb).FindByID(context.Background(), "b1")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}
