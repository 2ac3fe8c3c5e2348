package payment

import (
	"github.com/shopspring/decimal"
)

// Status is the raw payment status reported by the payment service.
// Unrecognized values are kept verbatim.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

type ListingRef struct {
	ID   string `json:"id,omitempty"`
	Slug string `json:"slug"`
}

// Record is a read-only, possibly stale copy of a payment owned by the payment service.
type Record struct {
	ID          string              `json:"id"`
	Status      Status              `json:"status"`
	Amount      decimal.NullDecimal `json:"amount"`
	PackageType string              `json:"packageType,omitempty"`
	Listing     *ListingRef         `json:"listing,omitempty"`
}

// UIState is the view-side classification of a payment.
type UIState string

const (
	StateLoading UIState = "loading"
	StatePending UIState = "pending"
	StateSuccess UIState = "success"
	StateFailed  UIState = "failed"
)

// Terminal reports whether polling stops permanently once s is reached.
func (s UIState) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}
