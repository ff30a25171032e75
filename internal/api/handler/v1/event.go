package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifalabs/rifa-api/internal/api/handler/v1/request"
	"github.com/rifalabs/rifa-api/internal/api/handler/v1/response"
	"github.com/rifalabs/rifa-api/internal/domain"
)

// EventWriter is the administrative surface for setting up events.
type EventWriter interface {
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
}

type EventHandler struct {
	events EventWriter
}

func NewEventHandler(events EventWriter) *EventHandler {
	return &EventHandler{
		events: events,
	}
}

// HandleCreateEvent registers an event with its number range. Events start in
// draft; activation is a separate administrative step.
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.events.CreateEvent(ctx.Request.Context(), domain.Event{
		Name:             req.Name,
		StartNumber:      req.StartNumber,
		EndNumber:        req.EndNumber,
		Status:           domain.EventDraft,
		RandomAssignment: req.RandomAssignment,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRange) || errors.Is(err, domain.ErrRangeTooLarge) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}

		err = fmt.Errorf("HandleCreateEvent -> h.events.CreateEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, response.NewEvent(event))
}
