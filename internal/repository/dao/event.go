package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventPriceNotFound    = errors.New("event price not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

type Event struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"not null"`
	StartNumber      int    `gorm:"not null"`
	EndNumber        int    `gorm:"not null"`
	Status           string `gorm:"not null;default:draft"`
	RandomAssignment bool   `gorm:"not null;default:false"`
	Prices           []EventPrice `gorm:"foreignKey:EventID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EventPrice struct {
	ID      uint            `gorm:"primaryKey"`
	EventID uint            `gorm:"not null;index"`
	Name    string          `gorm:"not null"`
	Amount  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

type PaymentMethod struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	Enabled bool   `gorm:"not null;default:true"`
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) GetByID(ctx context.Context, id uint) (Event, error) {
	var event Event
	result := d.db.WithContext(ctx).First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) GetPrice(ctx context.Context, eventID, priceID uint) (EventPrice, error) {
	var price EventPrice
	result := d.db.WithContext(ctx).
		Where("id = ? AND event_id = ?", priceID, eventID).
		First(&price)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return EventPrice{}, ErrEventPriceNotFound
		}

		return EventPrice{}, result.Error
	}

	return price, nil
}

func (d *EventDAO) GetPaymentMethod(ctx context.Context, id uint) (PaymentMethod, error) {
	var method PaymentMethod
	result := d.db.WithContext(ctx).First(&method, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return PaymentMethod{}, ErrPaymentMethodNotFound
		}

		return PaymentMethod{}, result.Error
	}

	return method, nil
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}

	return event, nil
}
