package coupons

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
)

const redemptionConstraint = "idx_coupon_redemptions_coupon_user"

// Service manages coupon administration, eligibility, and redemption.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Coupon, error)
	EligibleForUser(ctx context.Context, userID uuid.UUID, cartTotal decimal.Decimal) ([]models.Coupon, error)
	ResolveForCheckout(ctx context.Context, code string, userID uuid.UUID, cartTotal decimal.Decimal) (*models.Coupon, error)
	RedeemTx(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error
}

// CreateCouponInput carries the admin-facing coupon definition.
type CreateCouponInput struct {
	Code              string
	DiscountAmount    decimal.Decimal
	MinPurchaseAmount decimal.Decimal
	ExpiresAt         *time.Time
	Listed            bool
}

// UpdateCouponInput mutates only the fields a non-nil pointer names.
type UpdateCouponInput struct {
	DiscountAmount    *decimal.Decimal
	MinPurchaseAmount *decimal.Decimal
	ExpiresAt         *time.Time
	Listed            *bool
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a coupon service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if input.DiscountAmount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount amount must be positive")
	}
	if input.MinPurchaseAmount.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase amount must not be negative")
	}
	if input.MinPurchaseAmount.LessThan(input.DiscountAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase must cover the discount")
	}

	coupon := &models.Coupon{
		ID:                uuid.New(),
		Code:              code,
		DiscountAmount:    input.DiscountAmount,
		MinPurchaseAmount: input.MinPurchaseAmount,
		ExpiresAt:         input.ExpiresAt,
		Listed:            input.Listed,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error) {
	coupon, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DiscountAmount != nil {
		if input.DiscountAmount.Sign() <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount amount must be positive")
		}
		coupon.DiscountAmount = *input.DiscountAmount
	}
	if input.MinPurchaseAmount != nil {
		if input.MinPurchaseAmount.Sign() < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase amount must not be negative")
		}
		coupon.MinPurchaseAmount = *input.MinPurchaseAmount
	}
	if input.ExpiresAt != nil {
		coupon.ExpiresAt = input.ExpiresAt
	}
	if input.Listed != nil {
		coupon.Listed = *input.Listed
	}
	if coupon.MinPurchaseAmount.LessThan(coupon.DiscountAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase must cover the discount")
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update coupon")
	}
	return coupon, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coupon")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return coupons, nil
}

func (s *service) EligibleForUser(ctx context.Context, userID uuid.UUID, cartTotal decimal.Decimal) ([]models.Coupon, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	coupons, err := s.repo.ListEligible(ctx, userID, cartTotal, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list eligible coupons")
	}
	return coupons, nil
}

// ResolveForCheckout loads a coupon by code and validates it against the
// cart total. Redemption itself happens later, inside the order
// placement transaction.
func (s *service) ResolveForCheckout(ctx context.Context, code string, userID uuid.UUID, cartTotal decimal.Decimal) (*models.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}

	if !coupon.Listed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is not available")
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon has expired")
	}
	if cartTotal.LessThan(coupon.MinPurchaseAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cart total below the coupon minimum of %s", coupon.MinPurchaseAmount))
	}
	return coupon, nil
}

// RedeemTx records a redemption inside the caller's transaction. The
// unique (coupon_id, user_id) constraint is the single-use guard; a
// second attempt surfaces as a conflict regardless of interleaving.
func (s *service) RedeemTx(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error {
	if couponID == uuid.Nil || userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id and user id are required")
	}

	redemption := &models.CouponRedemption{
		ID:       uuid.New(),
		CouponID: couponID,
		UserID:   userID,
	}
	if orderID != uuid.Nil {
		redemption.OrderID = &orderID
	}

	if err := s.repo.WithTx(tx).CreateRedemption(ctx, redemption); err != nil {
		if db.IsUniqueViolation(err, redemptionConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon already redeemed")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record coupon redemption")
	}
	return nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	return coupon, nil
}
