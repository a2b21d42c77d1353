package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is the per-user refund and payment balance. Balance always
// equals the sum of its transactions; both are written in one statement
// pair inside a transaction.
type Wallet struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Balance      decimal.Decimal     `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	Active       bool                `gorm:"column:active;not null;default:true"`
	Transactions []WalletTransaction `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
