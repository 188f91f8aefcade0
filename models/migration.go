package models

import (
	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Category{}, &InventoryItem{},
		&CapitalStructure{},
		&Sale{}, &SaleItem{}, &SalesArchive{},
		&Expense{}, &Distribution{},
		&LedgerEntry{},
		&OutboxEvent{},
	)
}
