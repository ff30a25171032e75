package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rifalabs/rifa-api/internal/domain"
)

// CheckoutRequest opens one interactive purchase. The allocation itself runs
// out of band against the row created here.
type CheckoutRequest struct {
	EventID         uint
	EventPriceID    uint
	PaymentMethodID uint
	Purchaser       domain.PurchaserInfo
}

// CreatePurchase validates the references and writes the processing row a
// single allocation later fills in. The transaction id is fixed here so the
// enqueued job and its retries all name the same logical operation.
func (a *TicketAllocator) CreatePurchase(ctx context.Context, req CheckoutRequest) (domain.Purchase, error) {
	if _, _, err := a.usableEvent(ctx, req.EventID); err != nil {
		return domain.Purchase{}, err
	}

	price, err := a.events.GetPrice(ctx, req.EventID, req.EventPriceID)
	if err != nil {
		return domain.Purchase{}, err
	}

	method, err := a.events.GetPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if !method.Enabled {
		return domain.Purchase{}, ErrPaymentMethodDisabled
	}

	purchase, err := a.store.CreatePurchase(ctx, domain.Purchase{
		EventID:         req.EventID,
		EventPriceID:    req.EventPriceID,
		PaymentMethodID: req.PaymentMethodID,
		Status:          domain.PurchaseProcessing,
		TransactionID:   uuid.NewString(),
		Quantity:        1,
		UnitAmount:      price.Amount,
		BuyerName:       req.Purchaser.Name,
		BuyerEmail:      req.Purchaser.Email,
		BuyerPhone:      req.Purchaser.Phone,
	})
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("a.store.CreatePurchase -> %w", err)
	}

	return purchase, nil
}
