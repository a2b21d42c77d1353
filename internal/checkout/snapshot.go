package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
)

// Line pairs a cart selection with the catalog rows it resolves to.
type Line struct {
	Product  models.Product
	Variant  models.ProductVariant
	Quantity int
}

// SnapshotLine is one priced line frozen at checkout time. The prices
// never change afterwards, whatever happens to the catalog.
type SnapshotLine struct {
	Product         models.Product
	Variant         models.ProductVariant
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountedPrice *decimal.Decimal
}

// Snapshot is the immutable pricing result an order is created from.
type Snapshot struct {
	Lines         []SnapshotLine
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	Payable       decimal.Decimal
}

// BuildSnapshot freezes cart lines into order pricing. Payable is the
// sum of effective line prices minus the coupon discount, floored at
// zero. It rejects empty carts, delisted products, and quantities the
// variant cannot cover.
func BuildSnapshot(lines []Line, coupon *models.Coupon) (*Snapshot, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	snapshot := &Snapshot{
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid quantity %d for product %q", line.Quantity, line.Product.Name))
		}
		if !line.Product.Listed {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("product %q is no longer available", line.Product.Name))
		}
		if line.Variant.Stock < line.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("only %d of product %q in stock", line.Variant.Stock, line.Product.Name))
		}

		snapshotLine := SnapshotLine{
			Product:         line.Product,
			Variant:         line.Variant,
			Quantity:        line.Quantity,
			UnitPrice:       line.Product.Price,
			DiscountedPrice: line.Product.DiscountedPrice,
		}
		snapshot.Lines = append(snapshot.Lines, snapshotLine)
		snapshot.Subtotal = snapshot.Subtotal.Add(
			line.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if coupon != nil {
		if snapshot.Subtotal.LessThan(coupon.MinPurchaseAmount) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("cart total below the coupon minimum of %s", coupon.MinPurchaseAmount))
		}
		snapshot.TotalDiscount = coupon.DiscountAmount
	}

	snapshot.Payable = snapshot.Subtotal.Sub(snapshot.TotalDiscount)
	if snapshot.Payable.Sign() < 0 {
		snapshot.Payable = decimal.Zero
	}
	return snapshot, nil
}
