package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/repository/dao"
)

var (
	ErrEventNotFound         = dao.ErrEventNotFound
	ErrEventPriceNotFound    = dao.ErrEventPriceNotFound
	ErrPaymentMethodNotFound = dao.ErrPaymentMethodNotFound
)

type EventRepository struct {
	dao *dao.EventDAO
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{
		dao: dao.NewEventDAO(db),
	}
}

func (r *EventRepository) GetEvent(ctx context.Context, id uint) (domain.Event, error) {
	event, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}

	return eventDaoToDomain(event), nil
}

func (r *EventRepository) GetPrice(ctx context.Context, eventID, priceID uint) (domain.EventPrice, error) {
	price, err := r.dao.GetPrice(ctx, eventID, priceID)
	if err != nil {
		return domain.EventPrice{}, err
	}

	return domain.EventPrice{
		ID:      price.ID,
		EventID: price.EventID,
		Name:    price.Name,
		Amount:  price.Amount,
	}, nil
}

func (r *EventRepository) GetPaymentMethod(ctx context.Context, id uint) (domain.PaymentMethod, error) {
	method, err := r.dao.GetPaymentMethod(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	return domain.PaymentMethod{
		ID:      method.ID,
		Name:    method.Name,
		Enabled: method.Enabled,
	}, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	if _, err := event.NumberSpace(); err != nil {
		return domain.Event{}, fmt.Errorf("event.NumberSpace -> %w", err)
	}

	created, err := r.dao.Insert(ctx, dao.Event{
		Name:             event.Name,
		StartNumber:      event.StartNumber,
		EndNumber:        event.EndNumber,
		Status:           string(event.Status),
		RandomAssignment: event.RandomAssignment,
	})
	if err != nil {
		return domain.Event{}, err
	}

	return eventDaoToDomain(created), nil
}

func eventDaoToDomain(e dao.Event) domain.Event {
	return domain.Event{
		ID:               e.ID,
		Name:             e.Name,
		StartNumber:      e.StartNumber,
		EndNumber:        e.EndNumber,
		Status:           domain.EventStatus(e.Status),
		RandomAssignment: e.RandomAssignment,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
