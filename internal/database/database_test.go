package database

import (
	"context"
	"testing"

	"tienda/internal/models"
	"tienda/pkg/retry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryMigrates(t *testing.T) {
	db, err := OpenMemory(uuid.NewString())
	require.NoError(t, err)

	for _, table := range []any{&models.User{}, &models.Order{}, &models.OrderItem{}, &models.CartItem{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&models.CartItem{}, "idx_cart_line"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.Error(t, err)
}

func TestWaitReady(t *testing.T) {
	db, err := OpenMemory(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, WaitReady(context.Background(), db, retry.ReadDefaults))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Error(t, WaitReady(context.Background(), db, retry.Config{MaxAttempts: 1}))
}
