package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rifalabs/rifa-api/internal/domain"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")

	// ErrConstraintViolation is the typed form of a Postgres unique violation
	// on (event_id, ticket_number). Callers match it with errors.Is instead of
	// sniffing driver error codes.
	ErrConstraintViolation = errors.New("ticket number already assigned")
)

type Purchase struct {
	ID              uint    `gorm:"primaryKey"`
	EventID         uint    `gorm:"not null;index"`
	EventPriceID    uint    `gorm:"not null"`
	PaymentMethodID uint    `gorm:"not null"`
	TicketNumber    *string `gorm:"size:32"`
	Status          string  `gorm:"not null;default:processing"`
	TransactionID   string  `gorm:"not null;index"`
	Quantity        int     `gorm:"not null;default:1"`
	UnitAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	BuyerName       string
	BuyerEmail      string
	BuyerPhone      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PurchaseDAO struct {
	db *gorm.DB
}

func NewPurchaseDAO(db *gorm.DB) *PurchaseDAO {
	return &PurchaseDAO{
		db: db,
	}
}

// WithTx returns a DAO bound to the given transaction handle.
func (d *PurchaseDAO) WithTx(tx *gorm.DB) *PurchaseDAO {
	return &PurchaseDAO{db: tx}
}

func (d *PurchaseDAO) DB() *gorm.DB {
	return d.db
}

func (d *PurchaseDAO) GetByID(ctx context.Context, id uint) (Purchase, error) {
	var purchase Purchase
	result := d.db.WithContext(ctx).First(&purchase, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Purchase{}, ErrPurchaseNotFound
		}

		return Purchase{}, result.Error
	}

	return purchase, nil
}

func (d *PurchaseDAO) Insert(ctx context.Context, purchase Purchase) (Purchase, error) {
	result := d.db.WithContext(ctx).Create(&purchase)
	if result.Error != nil {
		return Purchase{}, asConstraintViolation(result.Error)
	}

	return purchase, nil
}

// BulkInsert writes all rows in one statement. A unique violation on
// (event_id, ticket_number) comes back as ErrConstraintViolation.
func (d *PurchaseDAO) BulkInsert(ctx context.Context, purchases []Purchase) error {
	if len(purchases) == 0 {
		return nil
	}

	result := d.db.WithContext(ctx).Create(&purchases)
	if result.Error != nil {
		return asConstraintViolation(result.Error)
	}

	return nil
}

// ClaimedNumbers returns every non-rejected assigned number of the event.
// With forUpdate set, the matching rows are locked until the surrounding
// transaction ends; calling it with forUpdate outside a transaction is a
// caller bug.
func (d *PurchaseDAO) ClaimedNumbers(ctx context.Context, eventID uint, forUpdate bool) ([]string, error) {
	query := d.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("event_id = ?", eventID).
		Where("ticket_number IS NOT NULL").
		Where("ticket_number NOT LIKE ?", domain.RejectedPrefix+"%")
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var numbers []string
	if err := query.Pluck("ticket_number", &numbers).Error; err != nil {
		return nil, err
	}

	return numbers, nil
}

func (d *PurchaseDAO) AssignNumber(ctx context.Context, purchaseID uint, number string, status string) error {
	result := d.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("id = ?", purchaseID).
		Updates(map[string]any{"ticket_number": number, "status": status})
	if result.Error != nil {
		return asConstraintViolation(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseNotFound
	}

	return nil
}

func (d *PurchaseDAO) MarkFailed(ctx context.Context, purchaseID uint, rejectedNumber *string) error {
	updates := map[string]any{"status": string(domain.PurchaseFailed)}
	if rejectedNumber != nil {
		updates["ticket_number"] = *rejectedNumber
	}

	return d.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("id = ?", purchaseID).
		Updates(updates).Error
}

// MarkTransactionFailed is the compensating bulk update for a batch that hit
// an unrecoverable error. Rows keep their numbers so a later retry of the
// same transaction treats them as legitimately claimed.
func (d *PurchaseDAO) MarkTransactionFailed(ctx context.Context, transactionID string) error {
	return d.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("transaction_id = ?", transactionID).
		Update("status", string(domain.PurchaseFailed)).Error
}

// RestoreTransaction flips failed-but-claimed rows of a transaction back to
// the given status, used when a batch retry completes the remainder.
func (d *PurchaseDAO) RestoreTransaction(ctx context.Context, transactionID string, status string) error {
	return d.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("transaction_id = ?", transactionID).
		Where("status = ?", string(domain.PurchaseFailed)).
		Where("ticket_number IS NOT NULL").
		Where("ticket_number NOT LIKE ?", domain.RejectedPrefix+"%").
		Update("status", status).Error
}

func (d *PurchaseDAO) NumbersByTransaction(ctx context.Context, transactionID string) ([]string, error) {
	var numbers []string
	err := d.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("transaction_id = ?", transactionID).
		Where("ticket_number IS NOT NULL").
		Where("ticket_number NOT LIKE ?", domain.RejectedPrefix+"%").
		Order("ticket_number ASC").
		Pluck("ticket_number", &numbers).Error
	if err != nil {
		return nil, err
	}

	return numbers, nil
}

func asConstraintViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrConstraintViolation
	}

	return err
}
