package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchaseProcessing PurchaseStatus = "processing"
	PurchasePending    PurchaseStatus = "pending"
	PurchaseCompleted  PurchaseStatus = "completed"
	PurchaseFailed     PurchaseStatus = "failed"
	PurchaseRefunded   PurchaseStatus = "refunded"
)

// RejectedPrefix marks a ticket_number that failed assignment. A rejected
// value is kept for audit and must never be treated as a claim.
const RejectedPrefix = "REJECTED-"

func RejectedNumber(number string) string {
	return RejectedPrefix + number
}

func IsRejected(number string) bool {
	return strings.HasPrefix(number, RejectedPrefix)
}

// Purchase is one ticket row. Quantity is always 1; the aggregate quantity of
// a user action is the row count sharing the same TransactionID.
type Purchase struct {
	ID              uint
	EventID         uint
	EventPriceID    uint
	PaymentMethodID uint
	TicketNumber    *string
	Status          PurchaseStatus
	TransactionID   string
	Quantity        int
	UnitAmount      decimal.Decimal
	BuyerName       string
	BuyerEmail      string
	BuyerPhone      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Claimed reports whether this row holds a real claim on its ticket number.
func (p Purchase) Claimed() bool {
	return p.TicketNumber != nil && *p.TicketNumber != "" && !IsRejected(*p.TicketNumber)
}

type PurchaserInfo struct {
	Name  string
	Email string
	Phone string
}
