package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type AllocateSingleRequest struct {
	PurchaseID     uint    `json:"purchase_id"`
	SpecificNumber *string `json:"specific_number,omitempty"`
	AutoApprove    bool    `json:"auto_approve"`
}

func (req *AllocateSingleRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.PurchaseID, validation.Required, validation.Min(uint(1))),
	)
}

type CheckoutRequest struct {
	EventPriceID    uint    `json:"event_price_id"`
	PaymentMethodID uint    `json:"payment_method_id"`
	SpecificNumber  *string `json:"specific_number,omitempty"`
	AutoApprove     bool    `json:"auto_approve"`
	BuyerName       string  `json:"buyer_name"`
	BuyerEmail      string  `json:"buyer_email"`
	BuyerPhone      string  `json:"buyer_phone"`
}

func (req *CheckoutRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.EventPriceID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.PaymentMethodID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.BuyerName, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.BuyerEmail, validation.Required, is.Email),
		validation.Field(&req.BuyerPhone, validation.Length(0, 30)),
	)
}

type AllocateBatchRequest struct {
	EventPriceID    uint   `json:"event_price_id"`
	PaymentMethodID uint   `json:"payment_method_id"`
	Quantity        int    `json:"quantity"`
	AutoApprove     bool   `json:"auto_approve"`
	UnitAmount      string `json:"unit_amount"`
	BuyerName       string `json:"buyer_name"`
	BuyerEmail      string `json:"buyer_email"`
	BuyerPhone      string `json:"buyer_phone"`
}

func (req *AllocateBatchRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.EventPriceID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.PaymentMethodID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1), validation.Max(100_000)),
		validation.Field(&req.BuyerName, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.BuyerEmail, validation.Required, is.Email),
		validation.Field(&req.BuyerPhone, validation.Length(0, 30)),
	)
}
