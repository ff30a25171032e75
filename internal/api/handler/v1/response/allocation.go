package response

type AllocationAccepted struct {
	TaskID        string `json:"task_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message"`
}

type CheckoutAccepted struct {
	PurchaseID    uint   `json:"purchase_id"`
	TransactionID string `json:"transaction_id"`
	TaskID        string `json:"task_id"`
	Message       string `json:"message"`
}

type Availability struct {
	EventID   uint `json:"event_id"`
	Remaining int  `json:"remaining"`
}
