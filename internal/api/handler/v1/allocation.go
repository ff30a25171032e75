package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rifalabs/rifa-api/internal/api/handler/v1/request"
	"github.com/rifalabs/rifa-api/internal/api/handler/v1/response"
	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/service"
	"github.com/rifalabs/rifa-api/internal/worker"
)

// AllocationEnqueuer is the producer surface of the job queue.
type AllocationEnqueuer interface {
	EnqueueSingle(ctx context.Context, payload worker.SingleAllocationPayload) (string, error)
	EnqueueBatch(ctx context.Context, payload worker.BatchAllocationPayload) (string, string, error)
}

// AvailabilityReader answers advisory remaining-count queries.
type AvailabilityReader interface {
	Availability(ctx context.Context, eventID uint) (int, error)
}

// PurchaseCreator opens the purchase row an interactive allocation fills.
type PurchaseCreator interface {
	CreatePurchase(ctx context.Context, req service.CheckoutRequest) (domain.Purchase, error)
}

type AllocationHandler struct {
	enqueuer     AllocationEnqueuer
	availability AvailabilityReader
	checkout     PurchaseCreator
}

func NewAllocationHandler(enqueuer AllocationEnqueuer, availability AvailabilityReader, checkout PurchaseCreator) *AllocationHandler {
	return &AllocationHandler{
		enqueuer:     enqueuer,
		availability: availability,
		checkout:     checkout,
	}
}

// HandleCheckout creates a processing purchase row and queues the single
// allocation that completes it. Responds 202; the number arrives out of band.
func (h *AllocationHandler) HandleCheckout(ctx *gin.Context) {
	eventID, ok := parseEventID(ctx)
	if !ok {
		return
	}

	var req request.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	purchase, err := h.checkout.CreatePurchase(ctx.Request.Context(), service.CheckoutRequest{
		EventID:         eventID,
		EventPriceID:    req.EventPriceID,
		PaymentMethodID: req.PaymentMethodID,
		Purchaser: domain.PurchaserInfo{
			Name:  req.BuyerName,
			Email: req.BuyerEmail,
			Phone: req.BuyerPhone,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "eventID", eventID))
		case service.Terminal(err):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("HandleCheckout -> h.checkout.CreatePurchase -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	taskID, err := h.enqueuer.EnqueueSingle(ctx.Request.Context(), worker.SingleAllocationPayload{
		PurchaseID:     purchase.ID,
		SpecificNumber: req.SpecificNumber,
		AutoApprove:    req.AutoApprove,
		TransactionID:  purchase.TransactionID,
	})
	if err != nil {
		err = fmt.Errorf("HandleCheckout -> h.enqueuer.EnqueueSingle -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusAccepted, response.CheckoutAccepted{
		PurchaseID:    purchase.ID,
		TransactionID: purchase.TransactionID,
		TaskID:        taskID,
		Message:       "purchase accepted, allocation queued",
	})
}

// HandleAllocateSingle accepts one interactive allocation and returns 202;
// the assignment completes out of band.
func (h *AllocationHandler) HandleAllocateSingle(ctx *gin.Context) {
	var req request.AllocateSingleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	taskID, err := h.enqueuer.EnqueueSingle(ctx.Request.Context(), worker.SingleAllocationPayload{
		PurchaseID:     req.PurchaseID,
		SpecificNumber: req.SpecificNumber,
		AutoApprove:    req.AutoApprove,
	})
	if err != nil {
		err = fmt.Errorf("HandleAllocateSingle -> h.enqueuer.EnqueueSingle -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusAccepted, response.AllocationAccepted{
		TaskID:  taskID,
		Message: "allocation queued",
	})
}

// HandleAllocateBatch accepts a massive administrative purchase.
func (h *AllocationHandler) HandleAllocateBatch(ctx *gin.Context) {
	eventID, ok := parseEventID(ctx)
	if !ok {
		return
	}

	var req request.AllocateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	unitAmount := decimal.Zero
	if req.UnitAmount != "" {
		parsed, err := decimal.NewFromString(req.UnitAmount)
		if err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid unit_amount: %w", err)))
			return
		}
		unitAmount = parsed
	}

	taskID, transactionID, err := h.enqueuer.EnqueueBatch(ctx.Request.Context(), worker.BatchAllocationPayload{
		EventID:         eventID,
		EventPriceID:    req.EventPriceID,
		PaymentMethodID: req.PaymentMethodID,
		BuyerName:       req.BuyerName,
		BuyerEmail:      req.BuyerEmail,
		BuyerPhone:      req.BuyerPhone,
		Quantity:        req.Quantity,
		AutoApprove:     req.AutoApprove,
		UnitAmount:      unitAmount,
	})
	if err != nil {
		err = fmt.Errorf("HandleAllocateBatch -> h.enqueuer.EnqueueBatch -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusAccepted, response.AllocationAccepted{
		TaskID:        taskID,
		TransactionID: transactionID,
		Message:       "massive allocation queued",
	})
}

// HandleAvailability reports the advisory remaining count. The answer is a
// low-stakes estimate, not a reservation.
func (h *AllocationHandler) HandleAvailability(ctx *gin.Context) {
	eventID, ok := parseEventID(ctx)
	if !ok {
		return
	}

	remaining, err := h.availability.Availability(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "eventID", eventID))
			return
		}

		err = fmt.Errorf("HandleAvailability -> h.availability.Availability -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.Availability{
		EventID:   eventID,
		Remaining: remaining,
	})
}

func parseEventID(ctx *gin.Context) (uint, bool) {
	raw := ctx.Param("eventID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid event ID (%v)", raw)))
		return 0, false
	}

	return uint(id), true
}
