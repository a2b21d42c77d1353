package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/gateway"
	"github.com/arjunvnair/modakart-backend/pkg/pagination"
)

type stubRunner struct{}

func (stubRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	wallets map[uuid.UUID]*models.Wallet
	txs     []models.WalletTransaction
}

func newStubRepo() *stubRepo {
	return &stubRepo{wallets: map[uuid.UUID]*models.Wallet{}}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if w, ok := r.wallets[userID]; ok {
		return w, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) Create(ctx context.Context, wallet *models.Wallet) error {
	r.wallets[wallet.UserID] = wallet
	return nil
}

func (r *stubRepo) AddToBalance(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	for _, w := range r.wallets {
		if w.ID != walletID {
			continue
		}
		next := w.Balance.Add(amount)
		if next.Sign() < 0 {
			return ErrInsufficientBalance
		}
		w.Balance = next
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *stubRepo) CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	r.txs = append(r.txs, *tx)
	return nil
}

func (r *stubRepo) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for _, tx := range r.txs {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *stubRepo) SumTransactions(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.txs {
		if tx.WalletID == walletID {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

type stubGateway struct {
	intents []decimal.Decimal
}

func (g *stubGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (*gateway.PaymentIntent, error) {
	g.intents = append(g.intents, amount)
	return &gateway.PaymentIntent{
		ID:       "intent_topup",
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: "INR",
		Status:   "created",
	}, nil
}

const testSecret = "testsecret"

func newTestService(t *testing.T) (Service, *stubRepo) {
	t.Helper()

	repo := newStubRepo()
	svc, err := NewService(Deps{
		Repo:    repo,
		Tx:      stubRunner{},
		Gateway: &stubGateway{},
		Secret:  testSecret,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func TestGetCreatesWalletLazily(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	wallet, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !wallet.Balance.IsZero() {
		t.Fatalf("new wallet balance = %s, want 0", wallet.Balance)
	}
	if len(repo.wallets) != 1 {
		t.Fatalf("expected one wallet, got %d", len(repo.wallets))
	}

	again, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if again.ID != wallet.ID {
		t.Fatal("second Get must return the same wallet")
	}
}

func TestAdjustCreditThenDebit(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	if _, err := svc.Adjust(context.Background(), AdjustInput{
		UserID:      userID,
		Amount:      decimal.NewFromInt(500),
		Description: "refund",
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Adjust(context.Background(), AdjustInput{
		UserID:      userID,
		Amount:      decimal.NewFromInt(-200),
		Description: "order payment",
	}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	wallet, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := wallet.Balance; !got.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("balance = %s, want 300", got)
	}

	sum, err := repo.SumTransactions(context.Background(), wallet.ID)
	if err != nil {
		t.Fatalf("SumTransactions: %v", err)
	}
	if !sum.Equal(wallet.Balance) {
		t.Fatalf("transaction sum %s != balance %s", sum, wallet.Balance)
	}
}

func TestAdjustRejectsOverdraft(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.Adjust(context.Background(), AdjustInput{
		UserID: userID,
		Amount: decimal.NewFromInt(-50),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	wallet, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !wallet.Balance.IsZero() {
		t.Fatalf("failed debit must not move the balance, got %s", wallet.Balance)
	}
}

func TestAdjustRejectsZeroAmount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Adjust(context.Background(), AdjustInput{
		UserID: uuid.New(),
		Amount: decimal.Zero,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTopUpCreatesIntent(t *testing.T) {
	svc, _ := newTestService(t)

	intent, err := svc.TopUp(context.Background(), uuid.New(), decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	if intent.ID == "" {
		t.Fatal("expected a payment intent")
	}
	if intent.Amount != 25000 {
		t.Fatalf("intent amount = %d minor units, want 25000", intent.Amount)
	}

	if _, err := svc.TopUp(context.Background(), uuid.New(), decimal.Zero); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("zero amount: expected validation error, got %v", err)
	}
}

func TestConfirmTopUpVerifiesSignature(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	input := ConfirmTopUpInput{
		UserID:    userID,
		Amount:    decimal.NewFromInt(250),
		IntentID:  "intent_topup",
		PaymentID: "pay_topup",
		Signature: "forged",
	}
	if _, err := svc.ConfirmTopUp(context.Background(), input); !pkgerrors.IsCode(err, pkgerrors.CodePaymentVerification) {
		t.Fatalf("forged signature: expected payment verification error, got %v", err)
	}
	if len(repo.txs) != 0 {
		t.Fatal("rejected confirmation must not write a transaction")
	}

	input.Signature = gateway.SignPayload(input.IntentID, input.PaymentID, testSecret)
	entry, err := svc.ConfirmTopUp(context.Background(), input)
	if err != nil {
		t.Fatalf("ConfirmTopUp: %v", err)
	}
	if !entry.Amount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("credit = %s, want 250", entry.Amount)
	}

	wallet, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !wallet.Balance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("balance = %s, want 250", wallet.Balance)
	}
}
