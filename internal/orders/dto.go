package orders

import (
	"github.com/google/uuid"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	"github.com/arjunvnair/modakart-backend/pkg/gateway"
)

// PlaceOrderInput carries a checkout request for the authenticated user.
type PlaceOrderInput struct {
	UserID        uuid.UUID
	AddressID     uuid.UUID
	PaymentMethod enums.PaymentMethod
	CouponCode    string
}

// PlaceOrderResult is either a created order (cash on delivery, wallet)
// or a payment intent the client must complete first (gateway).
type PlaceOrderResult struct {
	Order         *OrderView             `json:"order,omitempty"`
	PaymentIntent *gateway.PaymentIntent `json:"payment_intent,omitempty"`
}

// ConfirmGatewayPaymentInput carries the gateway callback payload. The
// order is created only at this point; Failed records the attempt
// without committing stock.
type ConfirmGatewayPaymentInput struct {
	UserID     uuid.UUID
	AddressID  uuid.UUID
	CouponCode string
	IntentID   string
	PaymentID  string
	Signature  string
	Failed     bool
}

// UpdateItemStatusInput is the admin fulfillment progression for one item.
type UpdateItemStatusInput struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
	Status  enums.ItemStatus
}

// RequestReturnInput opens a return request on a delivered item.
type RequestReturnInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	ItemID  uuid.UUID
	Reason  string
}

// ResolveReturnInput is the admin decision on a pending return request.
type ResolveReturnInput struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Decision enums.ReturnDecision
}

// RetryPaymentInput retries settlement on an order stuck unpaid.
type RetryPaymentInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Method  enums.PaymentMethod
}

// RetryPaymentResult mirrors PlaceOrderResult: wallet retries settle in
// place, gateway retries hand back an intent to complete.
type RetryPaymentResult struct {
	Order         *OrderView             `json:"order,omitempty"`
	PaymentIntent *gateway.PaymentIntent `json:"payment_intent,omitempty"`
}

// ConfirmRetryPaymentInput completes a gateway retry. Signature checks
// are always enforced on this path.
type ConfirmRetryPaymentInput struct {
	UserID    uuid.UUID
	OrderID   uuid.UUID
	IntentID  string
	PaymentID string
	Signature string
}

// OrderView is an order with its fulfillment status derived from the
// line items at read time.
type OrderView struct {
	models.Order
	Status enums.OrderStatus `json:"status"`
}

func newOrderView(order *models.Order) *OrderView {
	statuses := make([]enums.ItemStatus, 0, len(order.Items))
	for _, item := range order.Items {
		statuses = append(statuses, item.Status)
	}
	return &OrderView{
		Order:  *order,
		Status: enums.DeriveOrderStatus(statuses),
	}
}
