package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  color TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(variants).Error)
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO product_variants (id, product_id, color, stock) VALUES (?, ?, ?, ?)",
		id, uuid.New(), "black", stock,
	).Error)
	return id
}

func TestDecrementReducesStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	id := seedVariant(t, db, 10)

	require.NoError(t, repo.Decrement(context.Background(), id, 3))

	stock, err := repo.Stock(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 7, stock)
}

func TestDecrementClampsAtZero(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	id := seedVariant(t, db, 2)

	require.NoError(t, repo.Decrement(context.Background(), id, 5))

	stock, err := repo.Stock(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestDecrementExactStockHitsZero(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	id := seedVariant(t, db, 4)

	require.NoError(t, repo.Decrement(context.Background(), id, 4))

	stock, err := repo.Stock(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestIncrementRestoresStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	id := seedVariant(t, db, 1)

	require.NoError(t, repo.Increment(context.Background(), id, 6))

	stock, err := repo.Stock(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 7, stock)
}

func TestDecrementUnknownVariant(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)

	err := repo.Decrement(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDecrementRejectsNonPositiveQuantity(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	id := seedVariant(t, db, 5)

	assert.Error(t, repo.Decrement(context.Background(), id, 0))
	assert.Error(t, repo.Increment(context.Background(), id, -2))
}
