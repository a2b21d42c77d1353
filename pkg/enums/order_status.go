package enums

// OrderStatus is the order-level fulfillment rollup. It is never
// persisted; it is derived from line item statuses on every read.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturned        OrderStatus = "returned"
)

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// DeriveOrderStatus rolls line item statuses up to one order status.
// When every item shares a status the order carries it; any mix reads
// as processing.
func DeriveOrderStatus(statuses []ItemStatus) OrderStatus {
	if len(statuses) == 0 {
		return OrderStatusPending
	}
	first := statuses[0]
	for _, status := range statuses[1:] {
		if status != first {
			return OrderStatusProcessing
		}
	}
	return OrderStatus(first)
}
