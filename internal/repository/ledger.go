package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/repository/dao"
)

var (
	ErrPurchaseNotFound    = dao.ErrPurchaseNotFound
	ErrConstraintViolation = dao.ErrConstraintViolation
)

// AllocationStore is the ledger surface the allocation engine consumes. The
// production implementation is *Ledger; tests substitute an in-memory fake.
type AllocationStore interface {
	WithinTx(ctx context.Context, fn func(tx AllocationStore) error) error
	ClaimedNumbers(ctx context.Context, eventID uint) (map[string]struct{}, error)
	AdvisoryClaimedNumbers(ctx context.Context, eventID uint) (map[string]struct{}, error)
	GetPurchase(ctx context.Context, id uint) (domain.Purchase, error)
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (domain.Purchase, error)
	AssignNumber(ctx context.Context, purchaseID uint, number string, status domain.PurchaseStatus) error
	InsertClaims(ctx context.Context, purchases []domain.Purchase) error
	MarkPurchaseFailed(ctx context.Context, purchaseID uint, rejectedNumber *string) error
	MarkTransactionFailed(ctx context.Context, transactionID string) error
	RestoreTransaction(ctx context.Context, transactionID string, status domain.PurchaseStatus) error
	NumbersByTransaction(ctx context.Context, transactionID string) ([]string, error)
}

// Ledger is the durable record of which numbers in an event's space are
// already taken. Locked reads and claim writes must happen inside WithinTx;
// the advisory read is for non-authoritative estimates only.
type Ledger struct {
	db        *gorm.DB
	purchases *dao.PurchaseDAO
}

var _ AllocationStore = (*Ledger)(nil)

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		db:        db,
		purchases: dao.NewPurchaseDAO(db),
	}
}

// WithinTx runs fn against a ledger bound to one database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (l *Ledger) WithinTx(ctx context.Context, fn func(tx AllocationStore) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Ledger{db: tx, purchases: l.purchases.WithTx(tx)})
	})
}

// ClaimedNumbers performs the locked read of the event's claimed-set. It must
// be called from within WithinTx; the row locks it takes are what keeps two
// concurrent allocators from choosing the same available number.
func (l *Ledger) ClaimedNumbers(ctx context.Context, eventID uint) (map[string]struct{}, error) {
	return l.claimedNumbers(ctx, eventID, true)
}

// AdvisoryClaimedNumbers reads the claimed-set without locking.
func (l *Ledger) AdvisoryClaimedNumbers(ctx context.Context, eventID uint) (map[string]struct{}, error) {
	return l.claimedNumbers(ctx, eventID, false)
}

func (l *Ledger) claimedNumbers(ctx context.Context, eventID uint, forUpdate bool) (map[string]struct{}, error) {
	numbers, err := l.purchases.ClaimedNumbers(ctx, eventID, forUpdate)
	if err != nil {
		return nil, fmt.Errorf("l.purchases.ClaimedNumbers -> %w", err)
	}

	claimed := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		claimed[n] = struct{}{}
	}

	return claimed, nil
}

func (l *Ledger) GetPurchase(ctx context.Context, id uint) (domain.Purchase, error) {
	purchase, err := l.purchases.GetByID(ctx, id)
	if err != nil {
		return domain.Purchase{}, err
	}

	return purchaseDaoToDomain(purchase), nil
}

func (l *Ledger) CreatePurchase(ctx context.Context, purchase domain.Purchase) (domain.Purchase, error) {
	created, err := l.purchases.Insert(ctx, purchaseDomainToDao(purchase))
	if err != nil {
		return domain.Purchase{}, err
	}

	return purchaseDaoToDomain(created), nil
}

func (l *Ledger) AssignNumber(ctx context.Context, purchaseID uint, number string, status domain.PurchaseStatus) error {
	return l.purchases.AssignNumber(ctx, purchaseID, number, string(status))
}

func (l *Ledger) InsertClaims(ctx context.Context, purchases []domain.Purchase) error {
	rows := make([]dao.Purchase, len(purchases))
	for i, p := range purchases {
		rows[i] = purchaseDomainToDao(p)
	}

	return l.purchases.BulkInsert(ctx, rows)
}

func (l *Ledger) MarkPurchaseFailed(ctx context.Context, purchaseID uint, rejectedNumber *string) error {
	return l.purchases.MarkFailed(ctx, purchaseID, rejectedNumber)
}

func (l *Ledger) MarkTransactionFailed(ctx context.Context, transactionID string) error {
	return l.purchases.MarkTransactionFailed(ctx, transactionID)
}

func (l *Ledger) RestoreTransaction(ctx context.Context, transactionID string, status domain.PurchaseStatus) error {
	return l.purchases.RestoreTransaction(ctx, transactionID, string(status))
}

// NumbersByTransaction returns the non-rejected numbers already claimed under
// a transaction, in ascending order. Batch retries use it to resume.
func (l *Ledger) NumbersByTransaction(ctx context.Context, transactionID string) ([]string, error) {
	return l.purchases.NumbersByTransaction(ctx, transactionID)
}

func purchaseDaoToDomain(p dao.Purchase) domain.Purchase {
	return domain.Purchase{
		ID:              p.ID,
		EventID:         p.EventID,
		EventPriceID:    p.EventPriceID,
		PaymentMethodID: p.PaymentMethodID,
		TicketNumber:    p.TicketNumber,
		Status:          domain.PurchaseStatus(p.Status),
		TransactionID:   p.TransactionID,
		Quantity:        p.Quantity,
		UnitAmount:      p.UnitAmount,
		BuyerName:       p.BuyerName,
		BuyerEmail:      p.BuyerEmail,
		BuyerPhone:      p.BuyerPhone,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func purchaseDomainToDao(p domain.Purchase) dao.Purchase {
	return dao.Purchase{
		ID:              p.ID,
		EventID:         p.EventID,
		EventPriceID:    p.EventPriceID,
		PaymentMethodID: p.PaymentMethodID,
		TicketNumber:    p.TicketNumber,
		Status:          string(p.Status),
		TransactionID:   p.TransactionID,
		Quantity:        p.Quantity,
		UnitAmount:      p.UnitAmount,
		BuyerName:       p.BuyerName,
		BuyerEmail:      p.BuyerEmail,
		BuyerPhone:      p.BuyerPhone,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
