package response

import "github.com/rifalabs/rifa-api/internal/domain"

type Event struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	StartNumber      int    `json:"start_number"`
	EndNumber        int    `json:"end_number"`
	Status           string `json:"status"`
	RandomAssignment bool   `json:"random_assignment"`
}

func NewEvent(event domain.Event) Event {
	return Event{
		ID:               event.ID,
		Name:             event.Name,
		StartNumber:      event.StartNumber,
		EndNumber:        event.EndNumber,
		Status:           string(event.Status),
		RandomAssignment: event.RandomAssignment,
	}
}
