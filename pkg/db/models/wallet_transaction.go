package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletTransaction is an immutable ledger entry. Debits carry negative
// amounts, credits positive.
type WalletTransaction struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WalletID    uuid.UUID       `gorm:"column:wallet_id;type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
