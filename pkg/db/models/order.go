package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/pkg/enums"
)

// Order is one checkout transaction. The order-level fulfillment status
// is intentionally absent: it is derived from line items on read so it
// can never go stale.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID        uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PayableAmount    decimal.Decimal     `gorm:"column:payable_amount;type:numeric(12,2);not null"`
	TotalDiscount    decimal.Decimal     `gorm:"column:total_discount;type:numeric(12,2);not null;default:0"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	StockCommitted   bool                `gorm:"column:stock_committed;not null;default:false"`
	Items            []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
