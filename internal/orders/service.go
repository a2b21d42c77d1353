package orders

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/internal/checkout"
	"github.com/arjunvnair/modakart-backend/internal/wallet"
	"github.com/arjunvnair/modakart-backend/pkg/config"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/gateway"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
	"github.com/arjunvnair/modakart-backend/pkg/metrics"
	"github.com/arjunvnair/modakart-backend/pkg/pagination"
)

// Service is the order lifecycle engine. Each mutation runs in a single
// database transaction: order rows, stock movements, wallet entries,
// and coupon redemptions commit or roll back together.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	RecordGatewayPayment(ctx context.Context, input ConfirmGatewayPaymentInput) (*OrderView, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]OrderView, string, error)
	ListAllOrders(ctx context.Context, params pagination.Params) ([]OrderView, string, error)
	ListReturnRequested(ctx context.Context, params pagination.Params) ([]OrderView, string, error)
	UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*OrderView, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
	CancelItem(ctx context.Context, userID, orderID, itemID uuid.UUID) (*OrderView, error)
	RequestReturn(ctx context.Context, input RequestReturnInput) (*OrderView, error)
	ResolveReturn(ctx context.Context, input ResolveReturnInput) (*OrderView, error)
	RetryPayment(ctx context.Context, input RetryPaymentInput) (*RetryPaymentResult, error)
	ConfirmRetryPayment(ctx context.Context, input ConfirmRetryPaymentInput) (*OrderView, error)
}

// Deps bundles the collaborators the lifecycle engine drives.
type Deps struct {
	Repo      Repository
	Tx        txRunner
	Stock     StockAdjuster
	Wallet    WalletLedger
	Coupons   CouponRedeemer
	Carts     CartSource
	Addresses AddressChecker
	Gateway   gateway.IntentCreator
	Secret    string
	Flags     config.FeatureFlagsConfig
	Metrics   *metrics.LifecycleMetrics
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	stock     StockAdjuster
	wallet    WalletLedger
	coupons   CouponRedeemer
	carts     CartSource
	addresses AddressChecker
	gateway   gateway.IntentCreator
	secret    string
	flags     config.FeatureFlagsConfig
	metrics   *metrics.LifecycleMetrics
	logg      *logger.Logger
}

// NewService builds the order lifecycle engine with the required collaborators.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if deps.Wallet == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if deps.Coupons == nil {
		return nil, fmt.Errorf("coupon redeemer required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if deps.Addresses == nil {
		return nil, fmt.Errorf("address checker required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		stock:     deps.Stock,
		wallet:    deps.Wallet,
		coupons:   deps.Coupons,
		carts:     deps.Carts,
		addresses: deps.Addresses,
		gateway:   deps.Gateway,
		secret:    deps.Secret,
		flags:     deps.Flags,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
	}, nil
}

func (s *service) track(operation string, start time.Time, err *error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil && *err != nil {
		s.metrics.IncFailure(operation)
		return
	}
	s.metrics.IncSuccess(operation)
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (result *PlaceOrderResult, err error) {
	defer s.track("place_order", time.Now(), &err)

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	snapshot, coupon, err := s.buildSnapshot(ctx, input.UserID, input.AddressID, input.CouponCode)
	if err != nil {
		return nil, err
	}

	if input.PaymentMethod == enums.PaymentMethodGateway {
		intent, err := s.gateway.CreatePaymentIntent(ctx, snapshot.Payable)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
		}
		return &PlaceOrderResult{PaymentIntent: intent}, nil
	}

	payment := enums.PaymentStatusPending
	if input.PaymentMethod == enums.PaymentMethodWallet {
		payment = enums.PaymentStatusPaid
	}
	// Stock commit timing differs by method: wallet settles in this
	// call, so its stock always commits here. Cash on delivery follows
	// the DeferStockCommit flag.
	commitStock := !s.flags.DeferStockCommit || input.PaymentMethod == enums.PaymentMethodWallet

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order = buildOrder(input.UserID, input.AddressID, input.PaymentMethod, snapshot, payment, commitStock)
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if commitStock {
			if err := s.commitStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}
		if input.PaymentMethod == enums.PaymentMethodWallet && order.PayableAmount.Sign() > 0 {
			if _, err := s.wallet.AdjustTx(ctx, tx, wallet.AdjustInput{
				UserID:      input.UserID,
				Amount:      order.PayableAmount.Neg(),
				Description: fmt.Sprintf("payment for order %s", order.ID),
			}); err != nil {
				return err
			}
		}
		if coupon != nil {
			if err := s.coupons.RedeemTx(ctx, tx, coupon.ID, input.UserID, order.ID); err != nil {
				return err
			}
		}
		return s.carts.ClearTx(ctx, tx, input.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order placed")
	return &PlaceOrderResult{Order: newOrderView(order)}, nil
}

func (s *service) RecordGatewayPayment(ctx context.Context, input ConfirmGatewayPaymentInput) (view *OrderView, err error) {
	defer s.track("record_gateway_payment", time.Now(), &err)

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	if input.IntentID == "" || input.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id and payment id are required")
	}

	if !input.Failed {
		if !gateway.VerifySignature(input.IntentID, input.PaymentID, input.Signature, s.secret) {
			if s.flags.EnforceGatewaySignature {
				return nil, pkgerrors.New(pkgerrors.CodePaymentVerification, "gateway signature mismatch")
			}
			s.logg.Warn(ctx, "gateway signature mismatch ignored by configuration")
		}
	}

	snapshot, coupon, err := s.buildSnapshot(ctx, input.UserID, input.AddressID, input.CouponCode)
	if err != nil {
		return nil, err
	}

	payment := enums.PaymentStatusPaid
	if input.Failed {
		payment = enums.PaymentStatusFailed
	}
	commitStock := !input.Failed

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order = buildOrder(input.UserID, input.AddressID, enums.PaymentMethodGateway, snapshot, payment, commitStock)
		order.GatewayPaymentID = &input.PaymentID
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if commitStock {
			if err := s.commitStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}
		if coupon != nil {
			if err := s.coupons.RedeemTx(ctx, tx, coupon.ID, input.UserID, order.ID); err != nil {
				return err
			}
		}
		return s.carts.ClearTx(ctx, tx, input.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "gateway payment recorded")
	return newOrderView(order), nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.loadOrder(ctx, s.repo, userID, orderID)
	if err != nil {
		return nil, err
	}
	return newOrderView(order), nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]OrderView, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return viewsPage(rows, params.Limit)
}

// ListAllOrders is the admin back-office view across every customer.
func (s *service) ListAllOrders(ctx context.Context, params pagination.Params) ([]OrderView, string, error) {
	rows, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list all orders")
	}
	return viewsPage(rows, params.Limit)
}

// ListReturnRequested surfaces orders with a pending return request so
// an admin can feed ResolveReturn.
func (s *service) ListReturnRequested(ctx context.Context, params pagination.Params) ([]OrderView, string, error) {
	rows, err := s.repo.ListWithReturnRequests(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list return requests")
	}
	return viewsPage(rows, params.Limit)
}

func viewsPage(rows []models.Order, limit int) ([]OrderView, string, error) {
	page, next := pagination.Page(rows, limit, func(order models.Order) (time.Time, uuid.UUID) {
		return order.CreatedAt, order.ID
	})
	views := make([]OrderView, 0, len(page))
	for i := range page {
		views = append(views, *newOrderView(&page[i]))
	}
	return views, next, nil
}

func (s *service) UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (view *OrderView, err error) {
	defer s.track("update_item_status", time.Now(), &err)

	switch input.Status {
	case enums.ItemStatusPending, enums.ItemStatusShipped, enums.ItemStatusDelivered:
	case enums.ItemStatusCancelled, enums.ItemStatusReturnRequested, enums.ItemStatusReturned:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"cancellations and returns go through their dedicated operations")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item status")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, uuid.Nil, input.OrderID)
		if err != nil {
			return err
		}
		item, err := findItem(order, input.ItemID)
		if err != nil {
			return err
		}
		if item.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("item is already %s", item.Status))
		}

		updates := map[string]any{"status": input.Status}
		if input.Status == enums.ItemStatusDelivered {
			// Cash on delivery settles when the courier hands the
			// parcel over.
			updates["payment_status"] = enums.PaymentStatusPaid
		}
		if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update line item")
		}
		item.Status = input.Status
		if input.Status == enums.ItemStatusDelivered {
			item.PaymentStatus = enums.PaymentStatusPaid
		}

		if order.PaymentStatus != enums.PaymentStatusPaid && allItemsPaid(order.Items) {
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
				"payment_status": enums.PaymentStatusPaid,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order payment status")
			}
			order.PaymentStatus = enums.PaymentStatusPaid
		}

		view = newOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CancelOrder cancels every open line item, restocks them, and refunds
// the payable amount when the order was paid. Calling it again on an
// already-cancelled order is a no-op: restock and refund happen only
// for items this call transitions.
func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (view *OrderView, err error) {
	defer s.track("cancel_order", time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}

		transitioned := 0
		var restockErrs []error
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status.IsTerminal() {
				continue
			}
			if err := repo.UpdateItem(ctx, item.ID, map[string]any{
				"status": enums.ItemStatusCancelled,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel line item")
			}
			if order.StockCommitted {
				if err := s.stock.Increment(ctx, tx, item.VariantID, item.Quantity); err != nil {
					restockErrs = append(restockErrs, err)
					continue
				}
			}
			item.Status = enums.ItemStatusCancelled
			transitioned++
		}
		if err := multierr.Combine(restockErrs...); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock cancelled items")
		}

		if transitioned > 0 && order.PaymentStatus == enums.PaymentStatusPaid && order.PayableAmount.Sign() > 0 {
			if _, err := s.wallet.AdjustTx(ctx, tx, wallet.AdjustInput{
				UserID:      order.UserID,
				Amount:      order.PayableAmount,
				Description: fmt.Sprintf("refund for cancelled order %s", order.ID),
			}); err != nil {
				return err
			}
			s.metrics.IncRefund()
		}

		view = newOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order cancelled")
	return view, nil
}

func (s *service) CancelItem(ctx context.Context, userID, orderID, itemID uuid.UUID) (view *OrderView, err error) {
	defer s.track("cancel_item", time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}
		item, err := findItem(order, itemID)
		if err != nil {
			return err
		}
		if item.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("item is already %s", item.Status))
		}

		if err := repo.UpdateItem(ctx, item.ID, map[string]any{
			"status": enums.ItemStatusCancelled,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel line item")
		}
		if order.StockCommitted {
			if err := s.stock.Increment(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock variant")
			}
		}

		if item.PaymentStatus == enums.PaymentStatusPaid {
			refund := item.RefundAmount()
			if _, err := s.wallet.AdjustTx(ctx, tx, wallet.AdjustInput{
				UserID:      order.UserID,
				Amount:      refund,
				Description: fmt.Sprintf("refund for cancelled item in order %s", order.ID),
			}); err != nil {
				return err
			}
			s.metrics.IncRefund()

			remaining := order.PayableAmount.Sub(refund)
			if remaining.Sign() < 0 {
				remaining = decimal.Zero
			}
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
				"payable_amount": remaining,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payable amount")
			}
			order.PayableAmount = remaining
		}

		item.Status = enums.ItemStatusCancelled
		view = newOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) RequestReturn(ctx context.Context, input RequestReturnInput) (view *OrderView, err error) {
	defer s.track("request_return", time.Now(), &err)

	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason is required")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, input.UserID, input.OrderID)
		if err != nil {
			return err
		}
		item, err := findItem(order, input.ItemID)
		if err != nil {
			return err
		}
		if item.Status != enums.ItemStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered items can be returned")
		}

		if err := repo.UpdateItem(ctx, item.ID, map[string]any{
			"status":        enums.ItemStatusReturnRequested,
			"return_reason": input.Reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "request return")
		}
		item.Status = enums.ItemStatusReturnRequested
		item.ReturnReason = &input.Reason

		view = newOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) ResolveReturn(ctx context.Context, input ResolveReturnInput) (view *OrderView, err error) {
	defer s.track("resolve_return", time.Now(), &err)

	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return decision")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, uuid.Nil, input.OrderID)
		if err != nil {
			return err
		}
		item, err := findItem(order, input.ItemID)
		if err != nil {
			return err
		}
		if item.Status != enums.ItemStatusReturnRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item has no pending return request")
		}

		target := input.Decision.ItemStatus()
		if err := repo.UpdateItem(ctx, item.ID, map[string]any{
			"status": target,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve return")
		}
		item.Status = target

		if target == enums.ItemStatusReturned && item.PaymentStatus == enums.PaymentStatusPaid {
			if err := s.stock.Increment(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock variant")
			}
			if _, err := s.wallet.AdjustTx(ctx, tx, wallet.AdjustInput{
				UserID:      order.UserID,
				Amount:      item.RefundAmount(),
				Description: fmt.Sprintf("refund for returned item in order %s", order.ID),
			}); err != nil {
				return err
			}
			s.metrics.IncRefund()
		}

		view = newOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) RetryPayment(ctx context.Context, input RetryPaymentInput) (result *RetryPaymentResult, err error) {
	defer s.track("retry_payment", time.Now(), &err)

	switch input.Method {
	case enums.PaymentMethodWallet, enums.PaymentMethodGateway:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retry supports wallet and gateway payments only")
	}

	if input.Method == enums.PaymentMethodGateway {
		order, err := s.loadOrder(ctx, s.repo, input.UserID, input.OrderID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		intent, err := s.gateway.CreatePaymentIntent(ctx, order.PayableAmount)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
		}
		return &RetryPaymentResult{PaymentIntent: intent}, nil
	}

	var view *OrderView
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		settled, err := s.settleUnpaidOrder(ctx, tx, input.UserID, input.OrderID, nil, true)
		if err != nil {
			return err
		}
		view = settled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RetryPaymentResult{Order: view}, nil
}

func (s *service) ConfirmRetryPayment(ctx context.Context, input ConfirmRetryPaymentInput) (view *OrderView, err error) {
	defer s.track("confirm_retry_payment", time.Now(), &err)

	if input.IntentID == "" || input.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id and payment id are required")
	}
	// Retries always verify the signature, whatever the first-payment
	// enforcement flag says.
	if !gateway.VerifySignature(input.IntentID, input.PaymentID, input.Signature, s.secret) {
		return nil, pkgerrors.New(pkgerrors.CodePaymentVerification, "gateway signature mismatch")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		settled, err := s.settleUnpaidOrder(ctx, tx, input.UserID, input.OrderID, &input.PaymentID, false)
		if err != nil {
			return err
		}
		view = settled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// settleUnpaidOrder marks an unpaid order and its open items paid and
// commits stock if this order never committed it. The StockCommitted
// flag guarantees retried payments decrement stock exactly once.
func (s *service) settleUnpaidOrder(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, gatewayPaymentID *string, debitWallet bool) (*OrderView, error) {
	repo := s.repo.WithTx(tx)
	order, err := s.loadOrderForUpdate(ctx, repo, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	if debitWallet && order.PayableAmount.Sign() > 0 {
		if _, err := s.wallet.AdjustTx(ctx, tx, wallet.AdjustInput{
			UserID:      order.UserID,
			Amount:      order.PayableAmount.Neg(),
			Description: fmt.Sprintf("retry payment for order %s", order.ID),
		}); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{"payment_status": enums.PaymentStatusPaid}
	if gatewayPaymentID != nil {
		updates["gateway_payment_id"] = *gatewayPaymentID
	}
	if !order.StockCommitted {
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status.IsTerminal() {
				continue
			}
			if err := s.stock.Decrement(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "commit stock")
			}
		}
		updates["stock_committed"] = true
		order.StockCommitted = true
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	if err := repo.UpdateItemsByOrder(ctx, order.ID, map[string]any{
		"payment_status": enums.PaymentStatusPaid,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item payment statuses")
	}

	order.PaymentStatus = enums.PaymentStatusPaid
	if gatewayPaymentID != nil {
		order.GatewayPaymentID = gatewayPaymentID
	}
	for i := range order.Items {
		order.Items[i].PaymentStatus = enums.PaymentStatusPaid
	}
	return newOrderView(order), nil
}

// buildSnapshot resolves the cart and optional coupon into frozen
// pricing. The payable amount is always derived server-side.
func (s *service) buildSnapshot(ctx context.Context, userID, addressID uuid.UUID, couponCode string) (*checkout.Snapshot, *models.Coupon, error) {
	ok, err := s.addresses.ExistsForUser(ctx, addressID, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify address")
	}
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	lines, err := s.carts.ResolvedLines(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	var coupon *models.Coupon
	if couponCode != "" {
		base, err := checkout.BuildSnapshot(lines, nil)
		if err != nil {
			return nil, nil, err
		}
		coupon, err = s.coupons.ResolveForCheckout(ctx, couponCode, userID, base.Subtotal)
		if err != nil {
			return nil, nil, err
		}
	}

	snapshot, err := checkout.BuildSnapshot(lines, coupon)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, coupon, nil
}

func (s *service) commitStock(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) error {
	for _, item := range items {
		if err := s.stock.Decrement(ctx, tx, item.VariantID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "commit stock")
		}
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

// loadOrderForUpdate locks the order row for the rest of the
// transaction. A nil userID skips the ownership check (admin paths).
func (s *service) loadOrderForUpdate(ctx context.Context, repo Repository, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func buildOrder(userID, addressID uuid.UUID, method enums.PaymentMethod, snapshot *checkout.Snapshot, payment enums.PaymentStatus, stockCommitted bool) *models.Order {
	order := &models.Order{
		ID:             uuid.New(),
		UserID:         userID,
		AddressID:      addressID,
		PaymentMethod:  method,
		PayableAmount:  snapshot.Payable,
		TotalDiscount:  snapshot.TotalDiscount,
		PaymentStatus:  payment,
		StockCommitted: stockCommitted,
	}
	for _, line := range snapshot.Lines {
		order.Items = append(order.Items, models.OrderLineItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       line.Product.ID,
			VariantID:       line.Variant.ID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountedPrice: line.DiscountedPrice,
			Status:          enums.ItemStatusPending,
			PaymentStatus:   payment,
		})
	}
	return order
}

func findItem(order *models.Order, itemID uuid.UUID) (*models.OrderLineItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
}

func allItemsPaid(items []models.OrderLineItem) bool {
	for _, item := range items {
		if item.Status == enums.ItemStatusCancelled {
			continue
		}
		if item.PaymentStatus != enums.PaymentStatusPaid {
			return false
		}
	}
	return len(items) > 0
}
