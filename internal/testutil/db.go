package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lulocustoms/shop/internal/models"
)

// NewDB opens a private in-memory sqlite database with every model migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func SeedProduct(t *testing.T, db *gorm.DB, name, price string, stock int, active bool) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: active,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func Stock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()

	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.Stock
}
