package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/monitoring"
	"github.com/rifalabs/rifa-api/internal/repository"
)

// AllocateBatch assigns req.Quantity numbers under one transaction id,
// processing in chunks with one database transaction per chunk. Chunking
// bounds lock hold time and memory; the price is that a shortfall midway
// leaves earlier chunks committed, which is reported, not rolled back.
func (a *TicketAllocator) AllocateBatch(ctx context.Context, req domain.BatchRequest) (domain.BatchResult, error) {
	start := time.Now()
	result, err := a.allocateBatch(ctx, req)
	monitoring.ObserveAllocation("batch", outcomeLabel(err), time.Since(start))

	return result, err
}

func (a *TicketAllocator) allocateBatch(ctx context.Context, req domain.BatchRequest) (domain.BatchResult, error) {
	result := domain.BatchResult{TransactionID: req.TransactionID}

	event, space, err := a.usableEvent(ctx, req.EventID)
	if err != nil {
		return result, err
	}
	if req.Quantity < 1 || req.Quantity > space.Size() {
		return result, ErrInvalidQuantity
	}
	if _, err = a.events.GetPrice(ctx, req.EventID, req.EventPriceID); err != nil {
		return result, err
	}
	if _, err = a.events.GetPaymentMethod(ctx, req.PaymentMethodID); err != nil {
		return result, err
	}

	// A retried job re-enters here with rows already claimed by the prior
	// attempt. Those claims are legitimate; only the remainder is allocated.
	assigned, err := a.store.NumbersByTransaction(ctx, req.TransactionID)
	if err != nil {
		return result, fmt.Errorf("a.store.NumbersByTransaction -> %w", err)
	}
	resumed := len(assigned) > 0
	committed := len(assigned)
	initialStatus := req.InitialStatus()

	rng := a.shuffleRNG()
	for committed < req.Quantity {
		chunkSize := req.Quantity - committed
		if chunkSize > a.cfg.ChunkSize {
			chunkSize = a.cfg.ChunkSize
		}

		chunkNumbers, err := a.allocateChunk(ctx, event, space, req, chunkSize, committed, initialStatus, rng)
		if err != nil {
			var shortfall *ShortfallError
			if errors.As(err, &shortfall) {
				// Earlier chunks stay committed; the caller learns how far
				// the operation got.
				result.TotalAssigned = committed
				result.AssignedNumbers = assigned
				return result, err
			}

			if markErr := a.store.MarkTransactionFailed(ctx, req.TransactionID); markErr != nil {
				zap.L().Error("failed to mark transaction rows as failed",
					zap.String("transaction_id", req.TransactionID),
					zap.Error(markErr),
				)
			}
			result.TotalAssigned = committed
			result.AssignedNumbers = assigned

			return result, err
		}

		committed += chunkSize
		assigned = append(assigned, chunkNumbers...)
	}

	if resumed {
		// Rows bulk-failed by an earlier attempt become part of a now
		// successful operation again.
		if err := a.store.RestoreTransaction(ctx, req.TransactionID, initialStatus); err != nil {
			zap.L().Warn("failed to restore prior attempt rows",
				zap.String("transaction_id", req.TransactionID),
				zap.Error(err),
			)
		}
	}

	result.Success = true
	result.TotalAssigned = committed
	result.AssignedNumbers = assigned

	return result, nil
}

// allocateChunk claims chunkSize numbers inside its own transaction, retrying
// once (configurable) after a uniqueness collision from a concurrent writer
// that slipped past the locked read.
func (a *TicketAllocator) allocateChunk(
	ctx context.Context,
	event domain.Event,
	space domain.NumberSpace,
	req domain.BatchRequest,
	chunkSize int,
	committed int,
	status domain.PurchaseStatus,
	rng *rand.Rand,
) ([]string, error) {
	var chunkNumbers []string

	attempt := 0
	for {
		err := a.store.WithinTx(ctx, func(tx repository.AllocationStore) error {
			claimed, txErr := tx.ClaimedNumbers(ctx, event.ID)
			if txErr != nil {
				return txErr
			}

			available := space.Difference(claimed, event.RandomAssignment, rng)
			if len(available) < chunkSize {
				return &ShortfallError{
					Requested: req.Quantity,
					Committed: committed,
					Available: len(available),
				}
			}

			chunkNumbers = available[:chunkSize]
			rows := make([]domain.Purchase, chunkSize)
			for i, number := range chunkNumbers {
				n := number
				rows[i] = domain.Purchase{
					EventID:         req.EventID,
					EventPriceID:    req.EventPriceID,
					PaymentMethodID: req.PaymentMethodID,
					TicketNumber:    &n,
					Status:          status,
					TransactionID:   req.TransactionID,
					Quantity:        1,
					UnitAmount:      req.UnitAmount,
					BuyerName:       req.Purchaser.Name,
					BuyerEmail:      req.Purchaser.Email,
					BuyerPhone:      req.Purchaser.Phone,
				}
			}

			return tx.InsertClaims(ctx, rows)
		})
		if err == nil {
			return chunkNumbers, nil
		}

		if errors.Is(err, repository.ErrConstraintViolation) && attempt < a.cfg.ChunkRetries {
			attempt++
			monitoring.TrackChunkRetry()
			zap.L().Warn("chunk collided with a concurrent claim, retrying",
				zap.Uint("event_id", event.ID),
				zap.String("transaction_id", req.TransactionID),
				zap.Int("attempt", attempt),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.cfg.RetryDelay):
			}
			continue
		}

		return nil, err
	}
}
