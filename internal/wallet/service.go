package wallet

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/gateway"
	"github.com/arjunvnair/modakart-backend/pkg/pagination"
)

// ErrInsufficientBalance is returned when a debit exceeds the wallet balance.
var ErrInsufficientBalance = stdErrors.New("insufficient wallet balance")

// Service exposes wallet reads, balance adjustments, and gateway-backed
// top-ups. Every mutation writes the balance and a ledger transaction
// together, so the balance always equals the transaction sum.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Statement(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.WalletTransaction, error)
	AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.WalletTransaction, error)
	TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*gateway.PaymentIntent, error)
	ConfirmTopUp(ctx context.Context, input ConfirmTopUpInput) (*models.WalletTransaction, error)
}

// AdjustInput is one signed balance movement. Negative amounts debit.
type AdjustInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// ConfirmTopUpInput carries the gateway callback for a wallet top-up.
type ConfirmTopUpInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	IntentID  string
	PaymentID string
	Signature string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Deps bundles the wallet service collaborators.
type Deps struct {
	Repo    Repository
	Tx      txRunner
	Gateway gateway.IntentCreator
	Secret  string
}

type service struct {
	repo    Repository
	runner  txRunner
	gateway gateway.IntentCreator
	secret  string
}

// NewService wires a wallet service with the provided collaborators.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	return &service{
		repo:    deps.Repo,
		runner:  deps.Tx,
		gateway: deps.Gateway,
		secret:  deps.Secret,
	}, nil
}

// Get returns the user's wallet, creating an empty one on first touch.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.ensure(ctx, s.repo, userID)
}

func (s *service) Statement(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	wallet, err := s.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	txs, err := s.repo.ListTransactions(ctx, wallet.ID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}
	page, next := pagination.Page(txs, params.Limit, func(tx models.WalletTransaction) (time.Time, uuid.UUID) {
		return tx.CreatedAt, tx.ID
	})
	return page, next, nil
}

// Adjust applies a signed movement inside its own transaction.
func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.WalletTransaction, error) {
	var out *models.WalletTransaction
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.AdjustTx(ctx, tx, input)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdjustTx applies a signed movement inside the caller's transaction.
// Order lifecycle operations use this so the refund and the order state
// change commit or roll back together.
func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := s.ensure(ctx, repo, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := repo.AddToBalance(ctx, wallet.ID, input.Amount); err != nil {
		if stdErrors.Is(err, ErrInsufficientBalance) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "insufficient wallet balance")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust wallet balance")
	}

	movement := &models.WalletTransaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Amount:      input.Amount,
		Description: input.Description,
	}
	if err := repo.CreateTransaction(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet transaction")
	}
	return movement, nil
}

// TopUp opens a payment intent for adding money to the wallet. The
// credit lands only when ConfirmTopUp verifies the gateway callback.
func (s *service) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*gateway.PaymentIntent, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return intent, nil
}

// ConfirmTopUp credits the wallet after checking the HMAC the gateway
// computed over the intent and payment ids. Top-ups have no first-payment
// leniency: a bad signature is always rejected.
func (s *service) ConfirmTopUp(ctx context.Context, input ConfirmTopUpInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}
	if input.IntentID == "" || input.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id and payment id are required")
	}
	if !gateway.VerifySignature(input.IntentID, input.PaymentID, input.Signature, s.secret) {
		return nil, pkgerrors.New(pkgerrors.CodePaymentVerification, "gateway signature mismatch")
	}

	return s.Adjust(ctx, AdjustInput{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Description: fmt.Sprintf("wallet top-up %s", input.PaymentID),
	})
}

func (s *service) ensure(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := repo.FindByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}

	wallet = &models.Wallet{
		ID:      uuid.New(),
		UserID:  userID,
		Balance: decimal.Zero,
		Active:  true,
	}
	if err := repo.Create(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create wallet")
	}
	return wallet, nil
}
