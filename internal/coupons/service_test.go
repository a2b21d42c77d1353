package coupons

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
)

type redemptionKey struct {
	couponID uuid.UUID
	userID   uuid.UUID
}

type stubRepo struct {
	coupons     map[uuid.UUID]*models.Coupon
	redemptions map[redemptionKey]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		coupons:     map[uuid.UUID]*models.Coupon{},
		redemptions: map[redemptionKey]bool{},
	}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(ctx context.Context, coupon *models.Coupon) error {
	for _, existing := range r.coupons {
		if existing.Code == coupon.Code {
			return fmt.Errorf("duplicate key value violates unique constraint")
		}
	}
	r.coupons[coupon.ID] = coupon
	return nil
}

func (r *stubRepo) Update(ctx context.Context, coupon *models.Coupon) error {
	r.coupons[coupon.ID] = coupon
	return nil
}

func (r *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.coupons[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.coupons, id)
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	if c, ok := r.coupons[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	for _, c := range r.coupons {
		if c.Code == code {
			clone := *c
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) ListAll(ctx context.Context) ([]models.Coupon, error) {
	var out []models.Coupon
	for _, c := range r.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (r *stubRepo) ListEligible(ctx context.Context, userID uuid.UUID, cartTotal decimal.Decimal, now time.Time) ([]models.Coupon, error) {
	var out []models.Coupon
	for _, c := range r.coupons {
		if !c.Listed {
			continue
		}
		if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
			continue
		}
		if cartTotal.LessThan(c.MinPurchaseAmount) {
			continue
		}
		if r.redemptions[redemptionKey{couponID: c.ID, userID: userID}] {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *stubRepo) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	key := redemptionKey{couponID: redemption.CouponID, userID: redemption.UserID}
	if r.redemptions[key] {
		return errors.New("UNIQUE constraint failed: idx_coupon_redemptions_coupon_user")
	}
	r.redemptions[key] = true
	return nil
}

func newTestService(t *testing.T) (Service, *stubRepo) {
	t.Helper()

	repo := newStubRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func seedCoupon(t *testing.T, svc Service, code string, discount, minPurchase int64, expiresAt *time.Time) *models.Coupon {
	t.Helper()

	coupon, err := svc.Create(context.Background(), CreateCouponInput{
		Code:              code,
		DiscountAmount:    decimal.NewFromInt(discount),
		MinPurchaseAmount: decimal.NewFromInt(minPurchase),
		ExpiresAt:         expiresAt,
		Listed:            true,
	})
	if err != nil {
		t.Fatalf("seed coupon %s: %v", code, err)
	}
	return coupon
}

func TestCreateNormalizesCode(t *testing.T) {
	svc, _ := newTestService(t)

	coupon := seedCoupon(t, svc, "  welcome10 ", 100, 500, nil)
	if coupon.Code != "WELCOME10" {
		t.Fatalf("code = %q, want WELCOME10", coupon.Code)
	}
}

func TestCreateRejectsDiscountAboveMinPurchase(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateCouponInput{
		Code:              "BIG",
		DiscountAmount:    decimal.NewFromInt(600),
		MinPurchaseAmount: decimal.NewFromInt(500),
		Listed:            true,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDuplicateCodeConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	seedCoupon(t, svc, "DUP", 100, 500, nil)

	_, err := svc.Create(context.Background(), CreateCouponInput{
		Code:              "DUP",
		DiscountAmount:    decimal.NewFromInt(50),
		MinPurchaseAmount: decimal.NewFromInt(200),
		Listed:            true,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRedeemTxSecondAttemptConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	coupon := seedCoupon(t, svc, "ONCE", 100, 500, nil)
	userID := uuid.New()

	if err := svc.RedeemTx(context.Background(), nil, coupon.ID, userID, uuid.New()); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	err := svc.RedeemTx(context.Background(), nil, coupon.ID, userID, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on second redemption, got %v", err)
	}
}

func TestEligibleForUserFilters(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()
	expired := time.Now().Add(-time.Hour)

	eligible := seedCoupon(t, svc, "OK", 100, 500, nil)
	seedCoupon(t, svc, "TOOBIG", 100, 5000, nil)
	seedCoupon(t, svc, "EXPIRED", 100, 500, &expired)
	redeemed := seedCoupon(t, svc, "USED", 100, 500, nil)
	delisted := seedCoupon(t, svc, "HIDDEN", 100, 500, nil)

	repo.coupons[delisted.ID].Listed = false
	if err := svc.RedeemTx(context.Background(), nil, redeemed.ID, userID, uuid.Nil); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	got, err := svc.EligibleForUser(context.Background(), userID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("EligibleForUser: %v", err)
	}
	if len(got) != 1 || got[0].ID != eligible.ID {
		t.Fatalf("expected exactly coupon OK, got %d coupons", len(got))
	}
}

func TestResolveForCheckout(t *testing.T) {
	svc, _ := newTestService(t)
	seedCoupon(t, svc, "SAVE", 100, 500, nil)

	coupon, err := svc.ResolveForCheckout(context.Background(), "save", uuid.New(), decimal.NewFromInt(800))
	if err != nil {
		t.Fatalf("ResolveForCheckout: %v", err)
	}
	if coupon.Code != "SAVE" {
		t.Fatalf("code = %q", coupon.Code)
	}

	_, err = svc.ResolveForCheckout(context.Background(), "SAVE", uuid.New(), decimal.NewFromInt(300))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error below minimum, got %v", err)
	}

	_, err = svc.ResolveForCheckout(context.Background(), "MISSING", uuid.New(), decimal.NewFromInt(800))
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
