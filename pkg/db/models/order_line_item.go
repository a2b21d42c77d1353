package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/pkg/enums"
)

// OrderLineItem is one product variant within an order, priced as it was
// at checkout time.
type OrderLineItem struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	VariantID       uuid.UUID           `gorm:"column:variant_id;type:uuid;not null"`
	Quantity        int                 `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	DiscountedPrice *decimal.Decimal    `gorm:"column:discounted_price;type:numeric(12,2)"`
	Status          enums.ItemStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	ReturnReason    *string             `gorm:"column:return_reason"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the discounted unit price when present, else the
// unit price frozen at checkout.
func (i OrderLineItem) EffectivePrice() decimal.Decimal {
	if i.DiscountedPrice != nil {
		return *i.DiscountedPrice
	}
	return i.UnitPrice
}

// RefundAmount is the wallet credit owed when the item is cancelled or
// returned after payment.
func (i OrderLineItem) RefundAmount() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}
