package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Event{},
		&EventPrice{},
		&PaymentMethod{},
		&Purchase{},
	)
	if err != nil {
		return err
	}

	// The correctness invariant of the allocation engine: one non-rejected
	// claim per (event_id, ticket_number). Rejected sentinels and unassigned
	// rows stay out of the index, so AutoMigrate tags cannot express it.
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_purchases_event_ticket_number
		ON purchases (event_id, ticket_number)
		WHERE ticket_number IS NOT NULL
		  AND ticket_number NOT LIKE 'REJECTED-%'
	`).Error
}
