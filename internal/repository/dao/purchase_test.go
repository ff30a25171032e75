package dao

import (
	"context"
	"fmt"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rifalabs/rifa-api/internal/domain"
)

// setupDB starts a throwaway postgres container and migrates the schema.
// Skipped with -short or when docker is not reachable.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=rifa",
			"POSTGRES_PASSWORD=rifa",
			"POSTGRES_DB=rifa_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	dsn := fmt.Sprintf("host=localhost port=%s user=rifa password=rifa dbname=rifa_test sslmode=disable",
		resource.GetPort("5432/tcp"))

	var db *gorm.DB
	err = pool.Retry(func() error {
		var openErr error
		db, openErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if openErr != nil {
			return openErr
		}

		sqlDB, pingErr := db.DB()
		if pingErr != nil {
			return pingErr
		}

		return sqlDB.Ping()
	})
	require.NoError(t, err)

	require.NoError(t, InitTables(db))

	return db
}

func number(n string) *string {
	return &n
}

func TestPurchaseDAO(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	events := NewEventDAO(db)
	purchases := NewPurchaseDAO(db)

	event, err := events.Insert(ctx, Event{
		Name:        "spring raffle",
		StartNumber: 0,
		EndNumber:   99,
		Status:      string(domain.EventActive),
	})
	require.NoError(t, err)

	t.Run("unique violation surfaces as constraint violation", func(t *testing.T) {
		first := Purchase{
			EventID:       event.ID,
			TicketNumber:  number("0001"),
			Status:        string(domain.PurchaseCompleted),
			TransactionID: "tx-unique-1",
			Quantity:      1,
		}
		_, err := purchases.Insert(ctx, first)
		require.NoError(t, err)

		duplicate := first
		duplicate.ID = 0
		duplicate.TransactionID = "tx-unique-2"
		_, err = purchases.Insert(ctx, duplicate)
		assert.ErrorIs(t, err, ErrConstraintViolation)

		err = purchases.BulkInsert(ctx, []Purchase{{
			EventID:       event.ID,
			TicketNumber:  number("0001"),
			Status:        string(domain.PurchaseCompleted),
			TransactionID: "tx-unique-3",
			Quantity:      1,
		}})
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})

	t.Run("rejected sentinel rows escape the unique index", func(t *testing.T) {
		for _, txID := range []string{"tx-rej-1", "tx-rej-2"} {
			_, err := purchases.Insert(ctx, Purchase{
				EventID:       event.ID,
				TicketNumber:  number(domain.RejectedNumber("0002")),
				Status:        string(domain.PurchaseFailed),
				TransactionID: txID,
				Quantity:      1,
			})
			require.NoError(t, err)
		}

		// The number itself is still claimable.
		_, err := purchases.Insert(ctx, Purchase{
			EventID:       event.ID,
			TicketNumber:  number("0002"),
			Status:        string(domain.PurchaseCompleted),
			TransactionID: "tx-rej-3",
			Quantity:      1,
		})
		require.NoError(t, err)
	})

	t.Run("claimed numbers exclude rejected and unassigned rows", func(t *testing.T) {
		claimed, err := purchases.ClaimedNumbers(ctx, event.ID, false)
		require.NoError(t, err)
		assert.Contains(t, claimed, "0001")
		assert.Contains(t, claimed, "0002")
		for _, n := range claimed {
			assert.False(t, domain.IsRejected(n))
		}
	})

	t.Run("assign number updates status and rejects duplicates", func(t *testing.T) {
		row, err := purchases.Insert(ctx, Purchase{
			EventID:       event.ID,
			Status:        string(domain.PurchaseProcessing),
			TransactionID: "tx-assign-1",
			Quantity:      1,
		})
		require.NoError(t, err)

		require.NoError(t, purchases.AssignNumber(ctx, row.ID, "0010", string(domain.PurchaseCompleted)))

		got, err := purchases.GetByID(ctx, row.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TicketNumber)
		assert.Equal(t, "0010", *got.TicketNumber)
		assert.Equal(t, string(domain.PurchaseCompleted), got.Status)

		other, err := purchases.Insert(ctx, Purchase{
			EventID:       event.ID,
			Status:        string(domain.PurchaseProcessing),
			TransactionID: "tx-assign-2",
			Quantity:      1,
		})
		require.NoError(t, err)
		assert.ErrorIs(t, purchases.AssignNumber(ctx, other.ID, "0010", string(domain.PurchaseCompleted)), ErrConstraintViolation)

		assert.ErrorIs(t, purchases.AssignNumber(ctx, 99999, "0011", string(domain.PurchaseCompleted)), ErrPurchaseNotFound)
	})

	t.Run("transaction wide fail and restore", func(t *testing.T) {
		rows := []Purchase{
			{EventID: event.ID, TicketNumber: number("0020"), Status: string(domain.PurchasePending), TransactionID: "tx-batch", Quantity: 1},
			{EventID: event.ID, TicketNumber: number("0021"), Status: string(domain.PurchasePending), TransactionID: "tx-batch", Quantity: 1},
		}
		require.NoError(t, purchases.BulkInsert(ctx, rows))

		require.NoError(t, purchases.MarkTransactionFailed(ctx, "tx-batch"))

		// Numbers survive the compensation for the retry path.
		numbers, err := purchases.NumbersByTransaction(ctx, "tx-batch")
		require.NoError(t, err)
		assert.Equal(t, []string{"0020", "0021"}, numbers)

		require.NoError(t, purchases.RestoreTransaction(ctx, "tx-batch", string(domain.PurchasePending)))

		var statuses []string
		require.NoError(t, db.Model(&Purchase{}).
			Where("transaction_id = ?", "tx-batch").
			Pluck("status", &statuses).Error)
		for _, s := range statuses {
			assert.Equal(t, string(domain.PurchasePending), s)
		}
	})

	t.Run("mark failed records the rejected sentinel", func(t *testing.T) {
		row, err := purchases.Insert(ctx, Purchase{
			EventID:       event.ID,
			Status:        string(domain.PurchaseProcessing),
			TransactionID: "tx-fail-1",
			Quantity:      1,
		})
		require.NoError(t, err)

		require.NoError(t, purchases.MarkFailed(ctx, row.ID, number(domain.RejectedNumber("0030"))))

		got, err := purchases.GetByID(ctx, row.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.PurchaseFailed), got.Status)
		require.NotNil(t, got.TicketNumber)
		assert.Equal(t, "REJECTED-0030", *got.TicketNumber)
	})
}
