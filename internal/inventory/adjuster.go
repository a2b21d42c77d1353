package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Adjuster exposes stock movements to lifecycle operations that run
// inside their own transaction.
type Adjuster struct {
	repo Repository
}

// NewAdjuster wires an adjuster over the inventory repository.
func NewAdjuster(repo Repository) (*Adjuster, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Adjuster{repo: repo}, nil
}

// Decrement reduces variant stock inside the caller's transaction,
// clamping at zero.
func (a *Adjuster) Decrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error {
	return a.repo.WithTx(tx).Decrement(ctx, variantID, quantity)
}

// Increment restores variant stock inside the caller's transaction.
func (a *Adjuster) Increment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error {
	return a.repo.WithTx(tx).Increment(ctx, variantID, quantity)
}
