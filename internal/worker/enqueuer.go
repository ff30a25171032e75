package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer is the producer side of the queue: HTTP handlers hand it the
// allocation parameters and return an immediate acknowledgement while the
// worker completes the allocation out of band.
type Enqueuer struct {
	client *asynq.Client
	queue  string
}

func NewEnqueuer(client *asynq.Client, queue string) *Enqueuer {
	return &Enqueuer{
		client: client,
		queue:  queue,
	}
}

func (e *Enqueuer) EnqueueSingle(ctx context.Context, payload SingleAllocationPayload) (string, error) {
	if payload.TransactionID == "" {
		payload.TransactionID = uuid.NewString()
	}

	task, err := NewAllocateSingleTask(payload)
	if err != nil {
		return "", err
	}

	info, err := e.client.EnqueueContext(ctx, task, asynq.Queue(e.queue))
	if err != nil {
		return "", fmt.Errorf("client.EnqueueContext -> %w", err)
	}

	return info.ID, nil
}

// EnqueueBatch assigns the transaction id up front so every retry of the job
// re-enters the same logical operation.
func (e *Enqueuer) EnqueueBatch(ctx context.Context, payload BatchAllocationPayload) (string, string, error) {
	if payload.TransactionID == "" {
		payload.TransactionID = uuid.NewString()
	}

	task, err := NewAllocateBatchTask(payload)
	if err != nil {
		return "", "", err
	}

	info, err := e.client.EnqueueContext(ctx, task, asynq.Queue(e.queue))
	if err != nil {
		return "", "", fmt.Errorf("client.EnqueueContext -> %w", err)
	}

	return info.ID, payload.TransactionID, nil
}
