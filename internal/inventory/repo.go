package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository applies stock movements to product variants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Decrement(ctx context.Context, variantID uuid.UUID, quantity int) error
	Increment(ctx context.Context, variantID uuid.UUID, quantity int) error
	Stock(ctx context.Context, variantID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Decrement reduces a variant's stock by quantity, clamping at zero.
// The clamp happens inside the UPDATE so concurrent decrements can
// never drive stock negative.
func (r *repository) Decrement(ctx context.Context, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", quantity)
	}
	res := r.db.WithContext(ctx).Exec(
		"UPDATE product_variants SET stock = CASE WHEN stock > ? THEN stock - ? ELSE 0 END, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		quantity, quantity, variantID,
	)
	if res.Error != nil {
		return fmt.Errorf("decrement stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Increment restores quantity units to a variant's stock.
func (r *repository) Increment(ctx context.Context, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", quantity)
	}
	res := r.db.WithContext(ctx).Exec(
		"UPDATE product_variants SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		quantity, variantID,
	)
	if res.Error != nil {
		return fmt.Errorf("increment stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Stock(ctx context.Context, variantID uuid.UUID) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).
		Raw("SELECT stock FROM product_variants WHERE id = ?", variantID).
		Scan(&stock).Error
	if err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return stock, nil
}
