package domain

import "github.com/shopspring/decimal"

// SingleResult is the outcome of allocating one number to one purchase.
type SingleResult struct {
	Success      bool
	TicketNumber string
}

// BatchResult is the outcome of a massive allocation. TotalAssigned counts
// rows committed under the transaction, including chunks committed before a
// later chunk aborted.
type BatchResult struct {
	Success         bool
	TransactionID   string
	TotalAssigned   int
	AssignedNumbers []string
}

// AllocationResult is the uniform shape the orchestrator surfaces to callers
// regardless of the path taken.
type AllocationResult struct {
	Success         bool
	TransactionID   string
	AssignedNumbers []string
	Error           string
}

// AllocationSummary is the flat record handed to the notification dispatcher
// once per logical operation.
type AllocationSummary struct {
	TransactionID string          `json:"transaction_id"`
	EventID       uint            `json:"event_id"`
	EventName     string          `json:"event_name"`
	Quantity      int             `json:"quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BuyerName     string          `json:"buyer_name"`
	BuyerEmail    string          `json:"buyer_email"`
	BuyerPhone    string          `json:"buyer_phone"`
	Status        string          `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

// BatchRequest carries everything a massive allocation needs. TransactionID is
// assigned at enqueue time so job retries re-enter the same logical operation.
type BatchRequest struct {
	TransactionID   string
	EventID         uint
	EventPriceID    uint
	PaymentMethodID uint
	Purchaser       PurchaserInfo
	Quantity        int
	AutoApprove     bool
	UnitAmount      decimal.Decimal
}

func (r BatchRequest) InitialStatus() PurchaseStatus {
	if r.AutoApprove {
		return PurchaseCompleted
	}

	return PurchasePending
}
