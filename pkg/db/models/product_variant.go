package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProductVariant is the purchasable unit of a product, keyed by color.
// Stock carries a CHECK (stock >= 0) in the schema; every mutation goes
// through the inventory adjuster's atomic updates.
type ProductVariant struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID      `gorm:"column:product_id;type:uuid;not null;index"`
	Color     string         `gorm:"column:color;not null"`
	Stock     int            `gorm:"column:stock;not null;default:0"`
	Images    pq.StringArray `gorm:"column:images;type:text[]"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
