package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateEventRequest struct {
	Name             string `json:"name"`
	StartNumber      int    `json:"start_number"`
	EndNumber        int    `json:"end_number"`
	RandomAssignment bool   `json:"random_assignment"`
}

func (req *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.StartNumber, validation.Min(0)),
		validation.Field(&req.EndNumber, validation.Min(0)),
	)
}
