package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

type Event struct {
	ID               uint
	Name             string
	StartNumber      int
	EndNumber        int
	Status           EventStatus
	RandomAssignment bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (e Event) NumberSpace() (NumberSpace, error) {
	return NewNumberSpace(e.StartNumber, e.EndNumber)
}

type EventPrice struct {
	ID      uint
	EventID uint
	Name    string
	Amount  decimal.Decimal
}

type PaymentMethod struct {
	ID      uint
	Name    string
	Enabled bool
}
