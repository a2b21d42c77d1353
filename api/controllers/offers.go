package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/api/responses"
	"github.com/arjunvnair/modakart-backend/api/validators"
	offersvc "github.com/arjunvnair/modakart-backend/internal/offers"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
)

type createOfferRequest struct {
	Title         string          `json:"title" validate:"required"`
	Description   string          `json:"description"`
	DiscountType  string          `json:"discount_type" validate:"required"`
	DiscountValue decimal.Decimal `json:"discount_value" validate:"required"`
	StartsAt      time.Time       `json:"starts_at" validate:"required"`
	EndsAt        time.Time       `json:"ends_at" validate:"required"`
	Listed        bool            `json:"listed"`
	ProductID     *uuid.UUID      `json:"product_id"`
	CategoryID    *uuid.UUID      `json:"category_id"`
}

type updateOfferRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	DiscountValue *decimal.Decimal `json:"discount_value"`
	StartsAt      *time.Time       `json:"starts_at"`
	EndsAt        *time.Time       `json:"ends_at"`
	Listed        *bool            `json:"listed"`
}

// AdminOfferList serves all offers, newest first.
func AdminOfferList(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offers, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offers)
	}
}

// AdminOfferCreate registers an offer and reprices the covered products.
func AdminOfferCreate(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
			return
		}

		offer, err := svc.Create(r.Context(), offersvc.CreateOfferInput{
			Title:         payload.Title,
			Description:   payload.Description,
			DiscountType:  discountType,
			DiscountValue: payload.DiscountValue,
			StartsAt:      payload.StartsAt,
			EndsAt:        payload.EndsAt,
			Listed:        payload.Listed,
			ProductID:     payload.ProductID,
			CategoryID:    payload.CategoryID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// AdminOfferUpdate patches the fields present in the payload.
func AdminOfferUpdate(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Update(r.Context(), id, offersvc.UpdateOfferInput{
			Title:         payload.Title,
			Description:   payload.Description,
			DiscountValue: payload.DiscountValue,
			StartsAt:      payload.StartsAt,
			EndsAt:        payload.EndsAt,
			Listed:        payload.Listed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// AdminOfferDelete removes an offer and restores the covered prices.
func AdminOfferDelete(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
