package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/service"
)

type Handler struct {
	orchestrator *service.Orchestrator
}

func NewHandler(orchestrator *service.Orchestrator) *Handler {
	return &Handler{
		orchestrator: orchestrator,
	}
}

func NewMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAllocateSingle, h.HandleAllocateSingle)
	mux.HandleFunc(TypeAllocateBatch, h.HandleAllocateBatch)

	return mux
}

func (h *Handler) HandleAllocateSingle(ctx context.Context, task *asynq.Task) error {
	var payload SingleAllocationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal -> %v: %w", err, asynq.SkipRetry)
	}

	result, err := h.orchestrator.Allocate(ctx, service.AllocationRequest{
		Quantity:       1,
		AutoApprove:    payload.AutoApprove,
		TransactionID:  payload.TransactionID,
		PurchaseID:     payload.PurchaseID,
		SpecificNumber: payload.SpecificNumber,
	})

	return h.finish(task.Type(), payload.TransactionID, len(result.AssignedNumbers), err)
}

func (h *Handler) HandleAllocateBatch(ctx context.Context, task *asynq.Task) error {
	var payload BatchAllocationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal -> %v: %w", err, asynq.SkipRetry)
	}

	result, err := h.orchestrator.Allocate(ctx, service.AllocationRequest{
		Quantity:        payload.Quantity,
		AutoApprove:     payload.AutoApprove,
		TransactionID:   payload.TransactionID,
		EventID:         payload.EventID,
		EventPriceID:    payload.EventPriceID,
		PaymentMethodID: payload.PaymentMethodID,
		Purchaser: domain.PurchaserInfo{
			Name:  payload.BuyerName,
			Email: payload.BuyerEmail,
			Phone: payload.BuyerPhone,
		},
		UnitAmount: payload.UnitAmount,
	})

	return h.finish(task.Type(), payload.TransactionID, len(result.AssignedNumbers), err)
}

// finish translates an allocation outcome into asynq semantics: terminal
// business failures are not retried (the rows are already marked failed),
// lock contention and transient failures bubble up so the task is
// rescheduled.
func (h *Handler) finish(taskType, transactionID string, assigned int, err error) error {
	if err == nil {
		zap.L().Info("allocation task completed",
			zap.String("type", taskType),
			zap.String("transaction_id", transactionID),
			zap.Int("assigned", assigned),
		)

		return nil
	}

	if service.Terminal(err) {
		zap.L().Warn("allocation task failed terminally",
			zap.String("type", taskType),
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)

		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	return err
}
