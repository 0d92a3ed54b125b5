package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "postgres"})
	require.Error(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle", DSN: "x"})
	require.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestOpen_SQLiteMemory(t *testing.T) {
	db, err := Open(context.Background(), Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	require.Equal(t, 1, one)
}

func TestOpen_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := Open(context.Background(), Options{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, IsUniqueViolation(nil))
	require.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	require.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: orders.order_number (2067)")))
	require.True(t, IsUniqueViolation(errors.New("Error 1062 (23000): Duplicate entry 'ORD-2026-00001'")))
	require.False(t, IsUniqueViolation(errors.New("connection reset")))
}
