package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a flat-amount discount code.
type Coupon struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountAmount    decimal.Decimal    `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	MinPurchaseAmount decimal.Decimal    `gorm:"column:min_purchase_amount;type:numeric(12,2);not null"`
	ExpiresAt         *time.Time         `gorm:"column:expires_at"`
	Listed            bool               `gorm:"column:listed;not null;default:true"`
	Redemptions       []CouponRedemption `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
