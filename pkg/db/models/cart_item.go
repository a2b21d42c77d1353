package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one variant selection in a cart. A variant can appear at
// most once per cart.
type CartItem struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID      `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_variant"`
	ProductID uuid.UUID      `gorm:"column:product_id;type:uuid;not null"`
	VariantID uuid.UUID      `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_variant"`
	Quantity  int            `gorm:"column:quantity;not null;default:1"`
	Product   Product        `gorm:"foreignKey:ProductID"`
	Variant   ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
