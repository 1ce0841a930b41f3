package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slotshare-backend/internal/broadcast"
	"slotshare-backend/internal/db"
	"slotshare-backend/internal/model"
)

// newTestDB opens a named in-memory SQLite database so every test gets
// an isolated schema while GORM's connection pool still sees one store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

func newManagers(t *testing.T, gdb *gorm.DB) (*OccupancyManager, *QueueManager, *broadcast.Broadcaster) {
	t.Helper()
	bus := broadcast.New()
	t.Cleanup(bus.Close)
	locks := NewSlotLocks()
	queue := NewQueueManager(gdb, locks, bus)
	occ := NewOccupancyManager(gdb, locks, bus)
	return occ, queue, bus
}

func createUser(t *testing.T, gdb *gorm.DB, name string, admin bool) *model.User {
	t.Helper()
	user := model.User{
		Name:         name,
		Username:     strings.ToLower(name),
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	require.NoError(t, gdb.Create(&user).Error)
	return &user
}

func createSlot(t *testing.T, gdb *gorm.DB, id string) *model.Slot {
	t.Helper()
	slot := model.Slot{
		ID:          id,
		ServiceName: "Service " + id,
		Category:    "Research",
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&slot).Error)
	return &slot
}
