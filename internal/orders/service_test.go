package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/internal/checkout"
	"github.com/arjunvnair/modakart-backend/internal/wallet"
	"github.com/arjunvnair/modakart-backend/pkg/config"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/gateway"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
	"github.com/arjunvnair/modakart-backend/pkg/pagination"
)

const testSecret = "testsecret"

type stubRunner struct{}

func (stubRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (r *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	clone := cloneOrder(order)
	r.orders[order.ID] = clone
	return nil
}

func (r *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if order, ok := r.orders[orderID]; ok {
		return cloneOrder(order), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *stubOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			out = append(out, *cloneOrder(order))
		}
	}
	return out, nil
}

func (r *stubOrdersRepo) ListAll(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		out = append(out, *cloneOrder(order))
	}
	return out, nil
}

func (r *stubOrdersRepo) ListWithReturnRequests(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		for _, item := range order.Items {
			if item.Status == enums.ItemStatusReturnRequested {
				out = append(out, *cloneOrder(order))
				break
			}
		}
	}
	return out, nil
}

func (r *stubOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	order, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "payment_status":
			order.PaymentStatus = value.(enums.PaymentStatus)
		case "payable_amount":
			order.PayableAmount = value.(decimal.Decimal)
		case "gateway_payment_id":
			id := value.(string)
			order.GatewayPaymentID = &id
		case "stock_committed":
			order.StockCommitted = value.(bool)
		}
	}
	return nil
}

func (r *stubOrdersRepo) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	for _, order := range r.orders {
		for i := range order.Items {
			if order.Items[i].ID != itemID {
				continue
			}
			item := &order.Items[i]
			for key, value := range updates {
				switch key {
				case "status":
					item.Status = value.(enums.ItemStatus)
				case "payment_status":
					item.PaymentStatus = value.(enums.PaymentStatus)
				case "return_reason":
					reason := value.(string)
					item.ReturnReason = &reason
				}
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubOrdersRepo) UpdateItemsByOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	order, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range order.Items {
		if err := r.UpdateItem(ctx, order.Items[i].ID, updates); err != nil {
			return err
		}
	}
	return nil
}

func cloneOrder(order *models.Order) *models.Order {
	clone := *order
	clone.Items = append([]models.OrderLineItem(nil), order.Items...)
	return &clone
}

type stubStock struct {
	stock      map[uuid.UUID]int
	decrements map[uuid.UUID]int
	increments map[uuid.UUID]int
}

func newStubStock() *stubStock {
	return &stubStock{
		stock:      map[uuid.UUID]int{},
		decrements: map[uuid.UUID]int{},
		increments: map[uuid.UUID]int{},
	}
}

func (s *stubStock) Decrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error {
	next := s.stock[variantID] - quantity
	if next < 0 {
		next = 0
	}
	s.stock[variantID] = next
	s.decrements[variantID] += quantity
	return nil
}

func (s *stubStock) Increment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int) error {
	s.stock[variantID] += quantity
	s.increments[variantID] += quantity
	return nil
}

type stubWallet struct {
	balances map[uuid.UUID]decimal.Decimal
	entries  []wallet.AdjustInput
}

func newStubWallet() *stubWallet {
	return &stubWallet{balances: map[uuid.UUID]decimal.Decimal{}}
}

func (w *stubWallet) AdjustTx(ctx context.Context, tx *gorm.DB, input wallet.AdjustInput) (*models.WalletTransaction, error) {
	next := w.balances[input.UserID].Add(input.Amount)
	if next.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance")
	}
	w.balances[input.UserID] = next
	w.entries = append(w.entries, input)
	return &models.WalletTransaction{ID: uuid.New(), Amount: input.Amount}, nil
}

type redemption struct {
	couponID uuid.UUID
	userID   uuid.UUID
}

type stubCoupons struct {
	coupon   *models.Coupon
	redeemed map[redemption]bool
}

func newStubCoupons() *stubCoupons {
	return &stubCoupons{redeemed: map[redemption]bool{}}
}

func (c *stubCoupons) ResolveForCheckout(ctx context.Context, code string, userID uuid.UUID, cartTotal decimal.Decimal) (*models.Coupon, error) {
	if c.coupon == nil || c.coupon.Code != code {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if cartTotal.LessThan(c.coupon.MinPurchaseAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total below the coupon minimum")
	}
	return c.coupon, nil
}

func (c *stubCoupons) RedeemTx(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error {
	key := redemption{couponID: couponID, userID: userID}
	if c.redeemed[key] {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon already redeemed")
	}
	c.redeemed[key] = true
	return nil
}

type stubCarts struct {
	lines   []checkout.Line
	cleared int
}

func (c *stubCarts) ResolvedLines(ctx context.Context, userID uuid.UUID) ([]checkout.Line, error) {
	return c.lines, nil
}

func (c *stubCarts) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	c.cleared++
	c.lines = nil
	return nil
}

type stubAddresses struct{}

func (stubAddresses) ExistsForUser(ctx context.Context, addressID, userID uuid.UUID) (bool, error) {
	return addressID != uuid.Nil, nil
}

type stubGateway struct {
	intents []decimal.Decimal
}

func (g *stubGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (*gateway.PaymentIntent, error) {
	g.intents = append(g.intents, amount)
	return &gateway.PaymentIntent{
		ID:       "intent_test",
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: "INR",
		Status:   "created",
	}, nil
}

type fixture struct {
	svc     Service
	repo    *stubOrdersRepo
	stock   *stubStock
	wallet  *stubWallet
	coupons *stubCoupons
	carts   *stubCarts
	gateway *stubGateway
}

func newFixture(t *testing.T, flags config.FeatureFlagsConfig, lines []checkout.Line) *fixture {
	t.Helper()

	f := &fixture{
		repo:    newStubOrdersRepo(),
		stock:   newStubStock(),
		wallet:  newStubWallet(),
		coupons: newStubCoupons(),
		carts:   &stubCarts{lines: lines},
		gateway: &stubGateway{},
	}
	for _, line := range lines {
		f.stock.stock[line.Variant.ID] = line.Variant.Stock
	}

	svc, err := NewService(Deps{
		Repo:      f.repo,
		Tx:        stubRunner{},
		Stock:     f.stock,
		Wallet:    f.wallet,
		Coupons:   f.coupons,
		Carts:     f.carts,
		Addresses: stubAddresses{},
		Gateway:   f.gateway,
		Secret:    testSecret,
		Flags:     flags,
		Logger:    logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func cartLine(price int64, discounted *int64, stock, qty int) checkout.Line {
	product := models.Product{
		ID:     uuid.New(),
		Name:   "widget",
		Price:  decimal.NewFromInt(price),
		Listed: true,
	}
	if discounted != nil {
		d := decimal.NewFromInt(*discounted)
		product.DiscountedPrice = &d
	}
	return checkout.Line{
		Product:  product,
		Variant:  models.ProductVariant{ID: uuid.New(), ProductID: product.ID, Stock: stock},
		Quantity: qty,
	}
}

func int64p(v int64) *int64 { return &v }

func defaultFlags() config.FeatureFlagsConfig {
	return config.FeatureFlagsConfig{EnforceGatewaySignature: true}
}

func TestPlaceOrderCashOnDelivery(t *testing.T) {
	line := cartLine(100, nil, 10, 2)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	order := result.Order
	if order == nil {
		t.Fatal("expected an order for cash on delivery")
	}
	if !order.PayableAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("payable = %s, want 200", order.PayableAmount)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("payment status = %s, want pending", order.PaymentStatus)
	}
	if got := f.stock.stock[line.Variant.ID]; got != 8 {
		t.Fatalf("variant stock = %d, want 8", got)
	}
	if f.carts.cleared != 1 {
		t.Fatal("cart must be cleared on placement")
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("derived status = %s, want pending", order.Status)
	}
}

func TestPlaceOrderWalletDebitsAndMarksPaid(t *testing.T) {
	line := cartLine(150, nil, 5, 2)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	f.wallet.balances[userID] = decimal.NewFromInt(1000)

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if result.Order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", result.Order.PaymentStatus)
	}
	for _, item := range result.Order.Items {
		if item.PaymentStatus != enums.PaymentStatusPaid {
			t.Fatalf("item payment status = %s, want paid", item.PaymentStatus)
		}
	}
	if got := f.wallet.balances[userID]; !got.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("wallet balance = %s, want 700", got)
	}
}

func TestPlaceOrderWalletInsufficientBalance(t *testing.T) {
	f := newFixture(t, defaultFlags(), []checkout.Line{cartLine(500, nil, 5, 1)})

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        uuid.New(),
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestPlaceOrderGatewayReturnsIntentOnly(t *testing.T) {
	f := newFixture(t, defaultFlags(), []checkout.Line{cartLine(250, nil, 5, 2)})

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        uuid.New(),
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodGateway,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if result.Order != nil {
		t.Fatal("gateway placement must not create an order")
	}
	if result.PaymentIntent == nil {
		t.Fatal("expected a payment intent")
	}
	if len(f.repo.orders) != 0 {
		t.Fatal("no order rows should exist before confirmation")
	}
	if len(f.gateway.intents) != 1 || !f.gateway.intents[0].Equal(decimal.NewFromInt(500)) {
		t.Fatalf("intent amounts = %v, want [500]", f.gateway.intents)
	}
	if f.carts.cleared != 0 {
		t.Fatal("cart must survive until payment confirmation")
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t, defaultFlags(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        uuid.New(),
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	line := cartLine(400, nil, 5, 2)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	f.coupons.coupon = &models.Coupon{
		ID:                uuid.New(),
		Code:              "SAVE150",
		DiscountAmount:    decimal.NewFromInt(150),
		MinPurchaseAmount: decimal.NewFromInt(500),
	}
	userID := uuid.New()

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
		CouponCode:    "SAVE150",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if !result.Order.PayableAmount.Equal(decimal.NewFromInt(650)) {
		t.Fatalf("payable = %s, want 650", result.Order.PayableAmount)
	}
	if !result.Order.TotalDiscount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("discount = %s, want 150", result.Order.TotalDiscount)
	}
	if !f.coupons.redeemed[redemption{couponID: f.coupons.coupon.ID, userID: userID}] {
		t.Fatal("coupon redemption must be recorded")
	}
}

func TestRecordGatewayPaymentSignatureEnforced(t *testing.T) {
	f := newFixture(t, defaultFlags(), []checkout.Line{cartLine(100, nil, 5, 1)})

	_, err := f.svc.RecordGatewayPayment(context.Background(), ConfirmGatewayPaymentInput{
		UserID:    uuid.New(),
		AddressID: uuid.New(),
		IntentID:  "intent_test",
		PaymentID: "pay_1",
		Signature: "bogus",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodePaymentVerification) {
		t.Fatalf("expected payment verification error, got %v", err)
	}
	if len(f.repo.orders) != 0 {
		t.Fatal("no order may be created on signature mismatch")
	}
}

func TestRecordGatewayPaymentSignatureBypassFlag(t *testing.T) {
	flags := defaultFlags()
	flags.EnforceGatewaySignature = false
	f := newFixture(t, flags, []checkout.Line{cartLine(100, nil, 5, 1)})

	view, err := f.svc.RecordGatewayPayment(context.Background(), ConfirmGatewayPaymentInput{
		UserID:    uuid.New(),
		AddressID: uuid.New(),
		IntentID:  "intent_test",
		PaymentID: "pay_1",
		Signature: "bogus",
	})
	if err != nil {
		t.Fatalf("RecordGatewayPayment: %v", err)
	}
	if view.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", view.PaymentStatus)
	}
}

func TestRecordGatewayPaymentSuccess(t *testing.T) {
	line := cartLine(300, nil, 4, 2)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})

	view, err := f.svc.RecordGatewayPayment(context.Background(), ConfirmGatewayPaymentInput{
		UserID:    uuid.New(),
		AddressID: uuid.New(),
		IntentID:  "intent_test",
		PaymentID: "pay_1",
		Signature: gateway.SignPayload("intent_test", "pay_1", testSecret),
	})
	if err != nil {
		t.Fatalf("RecordGatewayPayment: %v", err)
	}

	if view.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", view.PaymentStatus)
	}
	if view.GatewayPaymentID == nil || *view.GatewayPaymentID != "pay_1" {
		t.Fatal("gateway payment id must be stored")
	}
	if got := f.stock.stock[line.Variant.ID]; got != 2 {
		t.Fatalf("variant stock = %d, want 2", got)
	}
	if !view.StockCommitted {
		t.Fatal("stock must be committed on paid confirmation")
	}
}

func TestRecordGatewayPaymentFailureSkipsStock(t *testing.T) {
	line := cartLine(300, nil, 4, 2)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})

	view, err := f.svc.RecordGatewayPayment(context.Background(), ConfirmGatewayPaymentInput{
		UserID:    uuid.New(),
		AddressID: uuid.New(),
		IntentID:  "intent_test",
		PaymentID: "pay_1",
		Failed:    true,
	})
	if err != nil {
		t.Fatalf("RecordGatewayPayment: %v", err)
	}

	if view.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("payment status = %s, want failed", view.PaymentStatus)
	}
	if got := f.stock.stock[line.Variant.ID]; got != 4 {
		t.Fatalf("variant stock = %d, want untouched 4", got)
	}
	if view.StockCommitted {
		t.Fatal("failed payment must not commit stock")
	}
}

func placeCODOrder(t *testing.T, f *fixture, userID uuid.UUID) *OrderView {
	t.Helper()

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return result.Order
}

func TestCancelOrderRestocksAndRefundsOnce(t *testing.T) {
	line := cartLine(100, nil, 10, 2)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	f.wallet.balances[userID] = decimal.NewFromInt(1000)

	// Wallet payment so the order is paid and a refund is due.
	f.carts.lines = []checkout.Line{line}
	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	order := result.Order
	balanceAfterPayment := f.wallet.balances[userID]

	view, err := f.svc.CancelOrder(context.Background(), userID, order.ID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if view.Status != enums.OrderStatusCancelled {
		t.Fatalf("derived status = %s, want cancelled", view.Status)
	}
	if got := f.stock.increments[line.Variant.ID]; got != 2 {
		t.Fatalf("restocked %d, want 2", got)
	}
	wantBalance := balanceAfterPayment.Add(order.PayableAmount)
	if got := f.wallet.balances[userID]; !got.Equal(wantBalance) {
		t.Fatalf("balance = %s, want %s after refund", got, wantBalance)
	}

	// Second cancellation is a no-op: no double restock, no double refund.
	if _, err := f.svc.CancelOrder(context.Background(), userID, order.ID); err != nil {
		t.Fatalf("second CancelOrder: %v", err)
	}
	if got := f.stock.increments[line.Variant.ID]; got != 2 {
		t.Fatalf("restocked %d after repeat cancel, want still 2", got)
	}
	if got := f.wallet.balances[userID]; !got.Equal(wantBalance) {
		t.Fatalf("balance = %s after repeat cancel, want still %s", got, wantBalance)
	}
}

func TestCancelItemRefundsEffectivePrice(t *testing.T) {
	line := cartLine(200, int64p(150), 10, 1)
	other := cartLine(100, nil, 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line, other})
	userID := uuid.New()
	f.wallet.balances[userID] = decimal.NewFromInt(1000)

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	order := result.Order
	balanceAfterPayment := f.wallet.balances[userID]

	var target *models.OrderLineItem
	for i := range order.Items {
		if order.Items[i].VariantID == line.Variant.ID {
			target = &order.Items[i]
		}
	}
	if target == nil {
		t.Fatal("target item not found")
	}

	view, err := f.svc.CancelItem(context.Background(), userID, order.ID, target.ID)
	if err != nil {
		t.Fatalf("CancelItem: %v", err)
	}

	wantBalance := balanceAfterPayment.Add(decimal.NewFromInt(150))
	if got := f.wallet.balances[userID]; !got.Equal(wantBalance) {
		t.Fatalf("balance = %s, want %s", got, wantBalance)
	}
	wantPayable := order.PayableAmount.Sub(decimal.NewFromInt(150))
	if !view.PayableAmount.Equal(wantPayable) {
		t.Fatalf("payable = %s, want %s", view.PayableAmount, wantPayable)
	}
	if got := f.stock.increments[line.Variant.ID]; got != 1 {
		t.Fatalf("restocked %d, want 1", got)
	}
	if view.Status != enums.OrderStatusProcessing {
		t.Fatalf("derived status = %s, want processing for a mixed order", view.Status)
	}

	_, err = f.svc.CancelItem(context.Background(), userID, order.ID, target.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on repeat cancel, got %v", err)
	}
}

func TestUpdateItemStatusDeliveredSettlesPayment(t *testing.T) {
	line := cartLine(100, nil, 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	order := placeCODOrder(t, f, userID)

	view, err := f.svc.UpdateItemStatus(context.Background(), UpdateItemStatusInput{
		OrderID: order.ID,
		ItemID:  order.Items[0].ID,
		Status:  enums.ItemStatusDelivered,
	})
	if err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}

	if view.Items[0].PaymentStatus != enums.PaymentStatusPaid {
		t.Fatal("delivery must settle the item payment")
	}
	if view.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatal("order payment must settle once every item is paid")
	}
	if view.Status != enums.OrderStatusDelivered {
		t.Fatalf("derived status = %s, want delivered", view.Status)
	}
}

func TestUpdateItemStatusRejectsTerminalTargets(t *testing.T) {
	line := cartLine(100, nil, 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	order := placeCODOrder(t, f, uuid.New())

	_, err := f.svc.UpdateItemStatus(context.Background(), UpdateItemStatusInput{
		OrderID: order.ID,
		ItemID:  order.Items[0].ID,
		Status:  enums.ItemStatusCancelled,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReturnFlowRefundsAndRestocks(t *testing.T) {
	line := cartLine(200, int64p(150), 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	f.wallet.balances[userID] = decimal.NewFromInt(1000)

	result, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     uuid.New(),
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	order := result.Order
	itemID := order.Items[0].ID
	balanceAfterPayment := f.wallet.balances[userID]

	if _, err := f.svc.UpdateItemStatus(context.Background(), UpdateItemStatusInput{
		OrderID: order.ID, ItemID: itemID, Status: enums.ItemStatusDelivered,
	}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if _, err := f.svc.ResolveReturn(context.Background(), ResolveReturnInput{
		OrderID: order.ID, ItemID: itemID, Decision: enums.ReturnDecisionApproved,
	}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("resolve without request must conflict, got %v", err)
	}

	if _, err := f.svc.RequestReturn(context.Background(), RequestReturnInput{
		UserID: userID, OrderID: order.ID, ItemID: itemID, Reason: "damaged",
	}); err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}
	if got := f.stock.increments[line.Variant.ID]; got != 0 {
		t.Fatal("request alone must not restock")
	}

	view, err := f.svc.ResolveReturn(context.Background(), ResolveReturnInput{
		OrderID: order.ID, ItemID: itemID, Decision: enums.ReturnDecisionApproved,
	})
	if err != nil {
		t.Fatalf("ResolveReturn: %v", err)
	}

	if view.Status != enums.OrderStatusReturned {
		t.Fatalf("derived status = %s, want returned", view.Status)
	}
	if got := f.stock.increments[line.Variant.ID]; got != 1 {
		t.Fatalf("restocked %d, want 1", got)
	}
	wantBalance := balanceAfterPayment.Add(decimal.NewFromInt(150))
	if got := f.wallet.balances[userID]; !got.Equal(wantBalance) {
		t.Fatalf("balance = %s, want %s", got, wantBalance)
	}
}

func TestRejectedReturnKeepsDelivered(t *testing.T) {
	line := cartLine(100, nil, 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	order := placeCODOrder(t, f, userID)
	itemID := order.Items[0].ID

	if _, err := f.svc.UpdateItemStatus(context.Background(), UpdateItemStatusInput{
		OrderID: order.ID, ItemID: itemID, Status: enums.ItemStatusDelivered,
	}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := f.svc.RequestReturn(context.Background(), RequestReturnInput{
		UserID: userID, OrderID: order.ID, ItemID: itemID, Reason: "changed mind",
	}); err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}

	view, err := f.svc.ResolveReturn(context.Background(), ResolveReturnInput{
		OrderID: order.ID, ItemID: itemID, Decision: enums.ReturnDecisionRejected,
	})
	if err != nil {
		t.Fatalf("ResolveReturn: %v", err)
	}

	if view.Items[0].Status != enums.ItemStatusDelivered {
		t.Fatalf("item status = %s, want delivered", view.Items[0].Status)
	}
	if got := f.stock.increments[line.Variant.ID]; got != 0 {
		t.Fatal("rejected return must not restock")
	}
	if len(f.wallet.entries) != 0 {
		t.Fatal("rejected return must not refund")
	}
}

func TestRetryPaymentWalletCommitsStockOnce(t *testing.T) {
	line := cartLine(300, nil, 10, 1)
	flags := defaultFlags()
	flags.DeferStockCommit = true
	f := newFixture(t, flags, []checkout.Line{line})
	userID := uuid.New()
	f.wallet.balances[userID] = decimal.NewFromInt(1000)

	// Deferred commit leaves a cash-on-delivery order unpaid with no
	// stock movement.
	order := placeCODOrder(t, f, userID)
	if got := f.stock.decrements[line.Variant.ID]; got != 0 {
		t.Fatalf("deferred placement decremented %d, want 0", got)
	}

	result, err := f.svc.RetryPayment(context.Background(), RetryPaymentInput{
		UserID:  userID,
		OrderID: order.ID,
		Method:  enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("RetryPayment: %v", err)
	}

	view := result.Order
	if view.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", view.PaymentStatus)
	}
	if got := f.wallet.balances[userID]; !got.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("balance = %s, want 700 after 300 debit", got)
	}
	if got := f.stock.decrements[line.Variant.ID]; got != 1 {
		t.Fatalf("decremented %d, want exactly 1", got)
	}

	_, err = f.svc.RetryPayment(context.Background(), RetryPaymentInput{
		UserID:  userID,
		OrderID: order.ID,
		Method:  enums.PaymentMethodWallet,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on paid order, got %v", err)
	}
	if got := f.stock.decrements[line.Variant.ID]; got != 1 {
		t.Fatalf("decremented %d after repeat retry, want still 1", got)
	}
}

func TestConfirmRetryPaymentVerifiesSignature(t *testing.T) {
	line := cartLine(300, nil, 10, 1)
	flags := defaultFlags()
	flags.DeferStockCommit = true
	flags.EnforceGatewaySignature = false
	f := newFixture(t, flags, []checkout.Line{line})
	userID := uuid.New()
	order := placeCODOrder(t, f, userID)

	_, err := f.svc.ConfirmRetryPayment(context.Background(), ConfirmRetryPaymentInput{
		UserID:    userID,
		OrderID:   order.ID,
		IntentID:  "intent_test",
		PaymentID: "pay_retry",
		Signature: "bogus",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodePaymentVerification) {
		t.Fatalf("retry confirmation must always verify, got %v", err)
	}

	view, err := f.svc.ConfirmRetryPayment(context.Background(), ConfirmRetryPaymentInput{
		UserID:    userID,
		OrderID:   order.ID,
		IntentID:  "intent_test",
		PaymentID: "pay_retry",
		Signature: gateway.SignPayload("intent_test", "pay_retry", testSecret),
	})
	if err != nil {
		t.Fatalf("ConfirmRetryPayment: %v", err)
	}
	if view.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", view.PaymentStatus)
	}
	if view.GatewayPaymentID == nil || *view.GatewayPaymentID != "pay_retry" {
		t.Fatal("gateway payment id must be stored")
	}
	if got := f.stock.decrements[line.Variant.ID]; got != 1 {
		t.Fatalf("decremented %d, want 1", got)
	}
}

func TestGetOrderOwnership(t *testing.T) {
	line := cartLine(100, nil, 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	order := placeCODOrder(t, f, userID)

	if _, err := f.svc.GetOrder(context.Background(), userID, order.ID); err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	_, err := f.svc.GetOrder(context.Background(), uuid.New(), order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for another user, got %v", err)
	}
	_, err = f.svc.GetOrder(context.Background(), userID, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListUserOrdersScopedToOwner(t *testing.T) {
	line := cartLine(100, nil, 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	placeCODOrder(t, f, userID)

	views, _, err := f.svc.ListUserOrders(context.Background(), userID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("ListUserOrders: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("orders = %d, want 1", len(views))
	}

	if _, _, err := f.svc.ListUserOrders(context.Background(), uuid.Nil, pagination.Params{Limit: 10}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for missing identity, got %v", err)
	}
}

func TestAdminReadsSurfaceReturnRequests(t *testing.T) {
	line := cartLine(100, nil, 10, 1)
	f := newFixture(t, defaultFlags(), []checkout.Line{line})
	userID := uuid.New()
	order := placeCODOrder(t, f, userID)

	all, _, err := f.svc.ListAllOrders(context.Background(), pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("ListAllOrders: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("all orders = %d, want 1", len(all))
	}

	pending, _, err := f.svc.ListReturnRequested(context.Background(), pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("ListReturnRequested: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("return requests = %d, want 0 before any request", len(pending))
	}

	itemID := order.Items[0].ID
	if _, err := f.svc.UpdateItemStatus(context.Background(), UpdateItemStatusInput{
		OrderID: order.ID,
		ItemID:  itemID,
		Status:  enums.ItemStatusDelivered,
	}); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if _, err := f.svc.RequestReturn(context.Background(), RequestReturnInput{
		UserID:  userID,
		OrderID: order.ID,
		ItemID:  itemID,
		Reason:  "wrong size",
	}); err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}

	pending, _, err = f.svc.ListReturnRequested(context.Background(), pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("ListReturnRequested: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("return requests = %d, want 1", len(pending))
	}
	if pending[0].ID != order.ID {
		t.Fatal("listed order must be the one with the pending return")
	}
}
