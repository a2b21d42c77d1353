package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/api/middleware"
	"github.com/arjunvnair/modakart-backend/api/responses"
	"github.com/arjunvnair/modakart-backend/api/validators"
	couponsvc "github.com/arjunvnair/modakart-backend/internal/coupons"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
)

type createCouponRequest struct {
	Code              string          `json:"code" validate:"required"`
	DiscountAmount    decimal.Decimal `json:"discount_amount" validate:"required"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`
	ExpiresAt         *time.Time      `json:"expires_at"`
	Listed            bool            `json:"listed"`
}

type updateCouponRequest struct {
	DiscountAmount    *decimal.Decimal `json:"discount_amount"`
	MinPurchaseAmount *decimal.Decimal `json:"min_purchase_amount"`
	ExpiresAt         *time.Time       `json:"expires_at"`
	Listed            *bool            `json:"listed"`
}

// CouponsEligible lists coupons the user can still redeem against the
// provided cart total.
func CouponsEligible(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("cart_total")
		if raw == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "cart_total query parameter is required"))
			return
		}
		cartTotal, err := decimal.NewFromString(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "cart_total must be a decimal number"))
			return
		}

		coupons, err := svc.EligibleForUser(r.Context(), middleware.UserIDFromContext(r.Context()), cartTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupons)
	}
}

// AdminCouponList serves every coupon, listed or not.
func AdminCouponList(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coupons, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupons)
	}
}

// AdminCouponCreate registers a new coupon.
func AdminCouponCreate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), couponsvc.CreateCouponInput{
			Code:              payload.Code,
			DiscountAmount:    payload.DiscountAmount,
			MinPurchaseAmount: payload.MinPurchaseAmount,
			ExpiresAt:         payload.ExpiresAt,
			Listed:            payload.Listed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

// AdminCouponUpdate patches the fields present in the payload.
func AdminCouponUpdate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.ParsePathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), couponID, couponsvc.UpdateCouponInput{
			DiscountAmount:    payload.DiscountAmount,
			MinPurchaseAmount: payload.MinPurchaseAmount,
			ExpiresAt:         payload.ExpiresAt,
			Listed:            payload.Listed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// AdminCouponDelete removes one coupon.
func AdminCouponDelete(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.ParsePathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
