package enums

import "fmt"

// ReturnDecision is the admin resolution for a return request.
type ReturnDecision string

const (
	ReturnDecisionApproved ReturnDecision = "returned"
	ReturnDecisionRejected ReturnDecision = "delivered"
)

// IsValid reports whether the value is a known ReturnDecision.
func (d ReturnDecision) IsValid() bool {
	return d == ReturnDecisionApproved || d == ReturnDecisionRejected
}

// ItemStatus maps the decision onto the line item status it produces.
func (d ReturnDecision) ItemStatus() ItemStatus {
	if d == ReturnDecisionApproved {
		return ItemStatusReturned
	}
	return ItemStatusDelivered
}

// ParseReturnDecision converts raw input into a ReturnDecision.
func ParseReturnDecision(value string) (ReturnDecision, error) {
	switch ReturnDecision(value) {
	case ReturnDecisionApproved, ReturnDecisionRejected:
		return ReturnDecision(value), nil
	default:
		return "", fmt.Errorf("invalid return decision %q", value)
	}
}
