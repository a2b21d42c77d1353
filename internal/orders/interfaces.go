package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/internal/checkout"
	"github.com/arjunvnair/modakart-backend/internal/wallet"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockAdjuster applies atomic stock movements within the lifecycle
// transaction. Decrements clamp at zero and never fail on shortage.
type StockAdjuster interface {
	Decrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error
	Increment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error
}

// WalletLedger posts signed balance movements inside the caller's
// transaction so refunds commit with the order state change.
type WalletLedger interface {
	AdjustTx(ctx context.Context, tx *gorm.DB, input wallet.AdjustInput) (*models.WalletTransaction, error)
}

// CouponRedeemer validates and records coupon use during placement.
type CouponRedeemer interface {
	ResolveForCheckout(ctx context.Context, code string, userID uuid.UUID, cartTotal decimal.Decimal) (*models.Coupon, error)
	RedeemTx(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error
}

// CartSource resolves the user's cart into priced checkout lines and
// clears it once an order is created from it.
type CartSource interface {
	ResolvedLines(ctx context.Context, userID uuid.UUID) ([]checkout.Line, error)
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// AddressChecker confirms the shipping address belongs to the buyer.
type AddressChecker interface {
	ExistsForUser(ctx context.Context, addressID, userID uuid.UUID) (bool, error)
}
