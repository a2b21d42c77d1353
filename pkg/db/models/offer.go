package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/pkg/enums"
)

// Offer is a time-boxed promotional discount on one product or one
// category. Active offers are folded into products.discounted_price;
// the best offer wins when several overlap.
type Offer struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title         string             `gorm:"column:title;not null"`
	Description   string             `gorm:"column:description"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	StartsAt      time.Time          `gorm:"column:starts_at;not null"`
	EndsAt        time.Time          `gorm:"column:ends_at;not null"`
	Listed        bool               `gorm:"column:listed;not null;default:true"`
	ProductID     *uuid.UUID         `gorm:"column:product_id;type:uuid"`
	CategoryID    *uuid.UUID         `gorm:"column:category_id;type:uuid"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
