package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunvnair/modakart-backend/api/middleware"
	"github.com/arjunvnair/modakart-backend/api/responses"
	"github.com/arjunvnair/modakart-backend/api/validators"
	walletsvc "github.com/arjunvnair/modakart-backend/internal/wallet"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
)

type walletAdjustRequest struct {
	UserID      uuid.UUID       `json:"user_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"required"`
}

type walletTopUpRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type walletConfirmTopUpRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	IntentID  string          `json:"intent_id" validate:"required"`
	PaymentID string          `json:"payment_id" validate:"required"`
	Signature string          `json:"signature" validate:"required"`
}

// WalletGet serves the user's balance, creating the wallet on first
// access.
func WalletGet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}

// WalletStatement serves the paginated transaction history.
func WalletStatement(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.Statement(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"transactions": rows,
			"next_cursor":  next,
		})
	}
}

// WalletTopUp opens a payment intent for adding money to the wallet.
func WalletTopUp(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload walletTopUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.TopUp(r.Context(), middleware.UserIDFromContext(r.Context()), payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payment_intent": intent})
	}
}

// WalletConfirmTopUp verifies the gateway callback and credits the wallet.
func WalletConfirmTopUp(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload walletConfirmTopUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.ConfirmTopUp(r.Context(), walletsvc.ConfirmTopUpInput{
			UserID:    middleware.UserIDFromContext(r.Context()),
			Amount:    payload.Amount,
			IntentID:  payload.IntentID,
			PaymentID: payload.PaymentID,
			Signature: payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// AdminWalletAdjust credits or debits any user's wallet.
func AdminWalletAdjust(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload walletAdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Adjust(r.Context(), walletsvc.AdjustInput{
			UserID:      payload.UserID,
			Amount:      payload.Amount,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}
