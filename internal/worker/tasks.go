package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

const (
	TypeAllocateSingle = "allocation:single"
	TypeAllocateBatch  = "allocation:batch"

	maxRetry = 3

	// A single allocation holds the event lock briefly; a massive batch can
	// legitimately run for tens of minutes.
	singleTimeout = 2 * time.Minute
	batchTimeout  = 50 * time.Minute
)

type SingleAllocationPayload struct {
	PurchaseID     uint    `json:"purchase_id"`
	SpecificNumber *string `json:"specific_number,omitempty"`
	AutoApprove    bool    `json:"auto_approve"`
	TransactionID  string  `json:"transaction_id"`
}

type BatchAllocationPayload struct {
	TransactionID   string          `json:"transaction_id"`
	EventID         uint            `json:"event_id"`
	EventPriceID    uint            `json:"event_price_id"`
	PaymentMethodID uint            `json:"payment_method_id"`
	BuyerName       string          `json:"buyer_name"`
	BuyerEmail      string          `json:"buyer_email"`
	BuyerPhone      string          `json:"buyer_phone"`
	Quantity        int             `json:"quantity"`
	AutoApprove     bool            `json:"auto_approve"`
	UnitAmount      decimal.Decimal `json:"unit_amount"`
}

func NewAllocateSingleTask(payload SingleAllocationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal -> %w", err)
	}

	return asynq.NewTask(TypeAllocateSingle, body,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(singleTimeout),
	), nil
}

func NewAllocateBatchTask(payload BatchAllocationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal -> %w", err)
	}

	return asynq.NewTask(TypeAllocateBatch, body,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(batchTimeout),
	), nil
}
