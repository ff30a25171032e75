package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/lock"
	"github.com/rifalabs/rifa-api/internal/monitoring"
	"github.com/rifalabs/rifa-api/internal/repository"
)

// AllocateSingle assigns one number, specific or uniformly random, to one
// existing purchase row. The per-event named lock serializes it against other
// single allocations; the locked claimed-set read inside the transaction
// serializes it against batches.
func (a *TicketAllocator) AllocateSingle(ctx context.Context, purchaseID uint, specificNumber *string, status domain.PurchaseStatus) (domain.SingleResult, error) {
	start := time.Now()
	result, err := a.allocateSingle(ctx, purchaseID, specificNumber, status)
	monitoring.ObserveAllocation("single", outcomeLabel(err), time.Since(start))

	return result, err
}

func (a *TicketAllocator) allocateSingle(ctx context.Context, purchaseID uint, specificNumber *string, status domain.PurchaseStatus) (domain.SingleResult, error) {
	purchase, err := a.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return domain.SingleResult{}, err
	}

	// A prior attempt may have finished before its job was retried.
	if purchase.Claimed() {
		return domain.SingleResult{Success: true, TicketNumber: *purchase.TicketNumber}, nil
	}

	_, space, err := a.usableEvent(ctx, purchase.EventID)
	if err != nil {
		a.failPurchase(ctx, purchaseID, nil)
		return domain.SingleResult{}, err
	}

	release, err := a.locker.Acquire(ctx, purchase.EventID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			// Rescheduled by the job framework, the row stays untouched.
			monitoring.TrackLockContention()
		}

		return domain.SingleResult{}, err
	}
	defer release(ctx)

	var chosen string
	err = a.store.WithinTx(ctx, func(tx repository.AllocationStore) error {
		claimed, txErr := tx.ClaimedNumbers(ctx, purchase.EventID)
		if txErr != nil {
			return txErr
		}

		if specificNumber != nil {
			number := *specificNumber
			if !space.Contains(number) {
				return ErrNumberOutOfRange
			}
			if _, taken := claimed[number]; taken {
				return ErrNumberTaken
			}
			chosen = number
		} else {
			available := space.Difference(claimed, false, nil)
			if len(available) == 0 {
				return ErrNoNumbersAvailable
			}
			chosen = available[a.randIntn(len(available))]
		}

		return tx.AssignNumber(ctx, purchaseID, chosen, status)
	})
	if err != nil {
		var rejected *string
		if specificNumber != nil && (errors.Is(err, ErrNumberTaken) || errors.Is(err, ErrNumberOutOfRange)) {
			sentinel := domain.RejectedNumber(*specificNumber)
			rejected = &sentinel
		}
		a.failPurchase(ctx, purchaseID, rejected)

		return domain.SingleResult{}, err
	}

	return domain.SingleResult{Success: true, TicketNumber: chosen}, nil
}

// failPurchase records the failure on the row before the error propagates, so
// the ledger never carries a claim in limbo. Best-effort: a failed update
// here is logged and the original error still wins.
func (a *TicketAllocator) failPurchase(ctx context.Context, purchaseID uint, rejectedNumber *string) {
	if err := a.store.MarkPurchaseFailed(ctx, purchaseID, rejectedNumber); err != nil {
		zap.L().Error("failed to mark purchase as failed",
			zap.Uint("purchase_id", purchaseID),
			zap.Error(err),
		)
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, lock.ErrNotAcquired):
		return "rescheduled"
	case Terminal(err):
		return "failed"
	}

	return "error"
}
