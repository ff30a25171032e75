package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/rifalabs/rifa-api/internal/config"
	"github.com/rifalabs/rifa-api/internal/lock"
	"github.com/rifalabs/rifa-api/internal/repository"
)

const lockRetryDelay = 2 * time.Second

func RedisOpt(conf *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	}
}

// NewServer builds the asynq worker. Lock contention gets a short fixed
// retry delay instead of the exponential default, and the error handler is
// the dead-letter callback that marks affected rows failed once the retry
// budget is spent.
func NewServer(redisConf *config.RedisConfig, workerConf *config.WorkerConfig, store repository.AllocationStore) *asynq.Server {
	concurrency := workerConf.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(RedisOpt(redisConf), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			workerConf.Queue: 1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			if errors.Is(err, lock.ErrNotAcquired) {
				return lockRetryDelay
			}

			return asynq.DefaultRetryDelayFunc(n, err, task)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(newFailureHandler(store)),
		Logger:       zapLogger{},
	})
}

// newFailureHandler marks rows failed when a task has exhausted its retries.
// It looks at every handler error; only the final one acts.
func newFailureHandler(store repository.AllocationStore) func(ctx context.Context, task *asynq.Task, err error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried < maxRetry {
			return
		}

		zap.L().Error("allocation task exhausted its retries",
			zap.String("type", task.Type()),
			zap.Error(err),
		)

		switch task.Type() {
		case TypeAllocateSingle:
			var payload SingleAllocationPayload
			if unmarshalErr := json.Unmarshal(task.Payload(), &payload); unmarshalErr != nil {
				return
			}
			if markErr := store.MarkPurchaseFailed(ctx, payload.PurchaseID, nil); markErr != nil {
				zap.L().Error("failed to mark purchase failed after retry exhaustion",
					zap.Uint("purchase_id", payload.PurchaseID),
					zap.Error(markErr),
				)
			}
		case TypeAllocateBatch:
			var payload BatchAllocationPayload
			if unmarshalErr := json.Unmarshal(task.Payload(), &payload); unmarshalErr != nil {
				return
			}
			if markErr := store.MarkTransactionFailed(ctx, payload.TransactionID); markErr != nil {
				zap.L().Error("failed to mark transaction failed after retry exhaustion",
					zap.String("transaction_id", payload.TransactionID),
					zap.Error(markErr),
				)
			}
		}
	}
}

// zapLogger adapts the global zap logger to asynq's logging interface.
type zapLogger struct{}

func (zapLogger) Debug(args ...interface{}) { zap.S().Debug(args...) }
func (zapLogger) Info(args ...interface{})  { zap.S().Info(args...) }
func (zapLogger) Warn(args ...interface{})  { zap.S().Warn(args...) }
func (zapLogger) Error(args ...interface{}) { zap.S().Error(args...) }
func (zapLogger) Fatal(args ...interface{}) { zap.S().Fatal(args...) }
