package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponRedemption records one user's use of a coupon. The composite
// unique index is what makes single-use-per-user a constraint rather
// than a listing-time filter.
type CouponRedemption struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID  uuid.UUID  `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_coupon_redemptions_coupon_user"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_coupon_redemptions_coupon_user"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
