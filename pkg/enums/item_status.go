package enums

import "fmt"

// ItemStatus tracks the fulfillment state of one order line item.
type ItemStatus string

const (
	ItemStatusPending         ItemStatus = "pending"
	ItemStatusShipped         ItemStatus = "shipped"
	ItemStatusDelivered       ItemStatus = "delivered"
	ItemStatusCancelled       ItemStatus = "cancelled"
	ItemStatusReturnRequested ItemStatus = "return_requested"
	ItemStatusReturned        ItemStatus = "returned"
)

var validItemStatuses = []ItemStatus{
	ItemStatusPending,
	ItemStatusShipped,
	ItemStatusDelivered,
	ItemStatusCancelled,
	ItemStatusReturnRequested,
	ItemStatusReturned,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusCancelled || s == ItemStatusReturned
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
