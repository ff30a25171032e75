package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/rifalabs/rifa-api/internal/domain"
)

// LogDispatcher is the fallback notifier used when no broker is configured,
// e.g. in local development.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(_ context.Context, summary domain.AllocationSummary) error {
	zap.L().Info("allocation summary",
		zap.String("transaction_id", summary.TransactionID),
		zap.Uint("event_id", summary.EventID),
		zap.Int("quantity", summary.Quantity),
		zap.String("status", summary.Status),
		zap.String("buyer_email", summary.BuyerEmail),
	)

	return nil
}
