package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rifalabs/rifa-api/internal/domain"
)

// Notifier fans an allocation summary out to administrators and purchasers.
// Dispatch failures are logged and never reverse an allocation.
type Notifier interface {
	Dispatch(ctx context.Context, summary domain.AllocationSummary) error
}

// ArtifactGenerator produces the shareable reference artifact (QR code) for a
// completed transaction. Best-effort, non-authoritative.
type ArtifactGenerator interface {
	Generate(ctx context.Context, transactionID string) (string, error)
}

// AllocationRequest is the uniform input of the orchestrator. Quantity picks
// the path: 1 allocates into the existing PurchaseID row, anything larger
// runs the massive flow creating its own rows.
type AllocationRequest struct {
	Quantity        int
	AutoApprove     bool
	TransactionID   string
	PurchaseID      uint
	SpecificNumber  *string
	EventID         uint
	EventPriceID    uint
	PaymentMethodID uint
	Purchaser       domain.PurchaserInfo
	UnitAmount      decimal.Decimal
}

// Orchestrator is the façade purchase flows invoke. It chooses the allocation
// strategy, surfaces a uniform result, and dispatches the summary
// notification and artifact generation exactly once per logical operation,
// after the authoritative transaction has committed.
type Orchestrator struct {
	allocator *TicketAllocator
	events    EventReader
	notifier  Notifier
	artifacts ArtifactGenerator
}

func NewOrchestrator(allocator *TicketAllocator, events EventReader, notifier Notifier, artifacts ArtifactGenerator) *Orchestrator {
	return &Orchestrator{
		allocator: allocator,
		events:    events,
		notifier:  notifier,
		artifacts: artifacts,
	}
}

func (o *Orchestrator) Allocate(ctx context.Context, req AllocationRequest) (domain.AllocationResult, error) {
	if req.Quantity <= 1 {
		return o.allocateSingle(ctx, req)
	}

	return o.allocateBatch(ctx, req)
}

func (o *Orchestrator) allocateSingle(ctx context.Context, req AllocationRequest) (domain.AllocationResult, error) {
	status := domain.PurchasePending
	if req.AutoApprove {
		status = domain.PurchaseCompleted
	}

	single, err := o.allocator.AllocateSingle(ctx, req.PurchaseID, req.SpecificNumber, status)
	result := domain.AllocationResult{
		Success:       single.Success,
		TransactionID: req.TransactionID,
	}
	if single.Success {
		result.AssignedNumbers = []string{single.TicketNumber}
	}
	if err != nil {
		result.Error = err.Error()
	}

	if err == nil || Terminal(err) {
		o.dispatchSummary(ctx, o.singleSummary(ctx, req, result, err))
	}

	return result, err
}

func (o *Orchestrator) allocateBatch(ctx context.Context, req AllocationRequest) (domain.AllocationResult, error) {
	batchReq := domain.BatchRequest{
		TransactionID:   req.TransactionID,
		EventID:         req.EventID,
		EventPriceID:    req.EventPriceID,
		PaymentMethodID: req.PaymentMethodID,
		Purchaser:       req.Purchaser,
		Quantity:        req.Quantity,
		AutoApprove:     req.AutoApprove,
		UnitAmount:      req.UnitAmount,
	}

	batch, err := o.allocator.AllocateBatch(ctx, batchReq)
	result := domain.AllocationResult{
		Success:         batch.Success,
		TransactionID:   batch.TransactionID,
		AssignedNumbers: batch.AssignedNumbers,
	}
	if err != nil {
		result.Error = err.Error()
	}

	if err == nil {
		o.generateArtifact(ctx, batch.TransactionID)
	}
	if err == nil || Terminal(err) {
		o.dispatchSummary(ctx, o.batchSummary(ctx, req, batch, err))
	}

	return result, err
}

func (o *Orchestrator) singleSummary(ctx context.Context, req AllocationRequest, result domain.AllocationResult, opErr error) domain.AllocationSummary {
	summary := domain.AllocationSummary{
		TransactionID: req.TransactionID,
		Quantity:      1,
		TotalAmount:   req.UnitAmount,
		Status:        "completed",
	}
	if opErr != nil {
		summary.Status = "failed"
		summary.FailureReason = opErr.Error()
	}

	// The purchase row carries the buyer and event of a checkout flow.
	if purchase, err := o.allocator.Purchase(ctx, req.PurchaseID); err == nil {
		summary.EventID = purchase.EventID
		summary.BuyerName = purchase.BuyerName
		summary.BuyerEmail = purchase.BuyerEmail
		summary.BuyerPhone = purchase.BuyerPhone
		summary.TotalAmount = purchase.UnitAmount

		if event, eventErr := o.events.GetEvent(ctx, purchase.EventID); eventErr == nil {
			summary.EventName = event.Name
		}
	}

	return summary
}

func (o *Orchestrator) batchSummary(ctx context.Context, req AllocationRequest, batch domain.BatchResult, opErr error) domain.AllocationSummary {
	summary := domain.AllocationSummary{
		TransactionID: batch.TransactionID,
		EventID:       req.EventID,
		Quantity:      batch.TotalAssigned,
		TotalAmount:   req.UnitAmount.Mul(decimal.NewFromInt(int64(batch.TotalAssigned))),
		BuyerName:     req.Purchaser.Name,
		BuyerEmail:    req.Purchaser.Email,
		BuyerPhone:    req.Purchaser.Phone,
		Status:        "completed",
	}
	if opErr != nil {
		summary.Status = "failed"
		summary.FailureReason = opErr.Error()
	}

	if event, err := o.events.GetEvent(ctx, req.EventID); err == nil {
		summary.EventName = event.Name
	}

	return summary
}

// dispatchSummary and generateArtifact are fire-and-forget side effects with
// no ordering guarantee relative to each other. They run after the
// authoritative transaction commits, never inside it.
func (o *Orchestrator) dispatchSummary(ctx context.Context, summary domain.AllocationSummary) {
	if o.notifier == nil {
		return
	}

	go func(ctx context.Context) {
		if err := o.notifier.Dispatch(ctx, summary); err != nil {
			zap.L().Error("failed to dispatch allocation summary",
				zap.String("transaction_id", summary.TransactionID),
				zap.Error(err),
			)
		}
	}(context.WithoutCancel(ctx))
}

func (o *Orchestrator) generateArtifact(ctx context.Context, transactionID string) {
	if o.artifacts == nil {
		return
	}

	go func(ctx context.Context) {
		if _, err := o.artifacts.Generate(ctx, transactionID); err != nil {
			zap.L().Warn("failed to generate reference artifact",
				zap.String("transaction_id", transactionID),
				zap.Error(err),
			)
		}
	}(context.WithoutCancel(ctx))
}
