package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is one double-entry posting. IDs are auto-increment so the
// ledger has a total order.
type LedgerEntry struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	ReferenceId     string              `gorm:"size:64;not null;index:idx_ledger_reference,priority:2" json:"reference_id"`
	ReferenceType   LedgerReferenceType `gorm:"size:32;not null;index:idx_ledger_reference,priority:1" json:"reference_type"`
	AccountDebited  LedgerAccount       `gorm:"size:32;not null" json:"account_debited"`
	AccountCredited LedgerAccount       `gorm:"size:32;not null" json:"account_credited"`
	Amount          decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	CreatedAt       time.Time           `gorm:"autoCreateTime;index" json:"created_at"`
}

func NewLedgerEntry(refType LedgerReferenceType, refId string, debit, credit LedgerAccount, amount decimal.Decimal) *LedgerEntry {
	return &LedgerEntry{
		ReferenceId:     refId,
		ReferenceType:   refType,
		AccountDebited:  debit,
		AccountCredited: credit,
		Amount:          amount,
	}
}

func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: ledger_entries cannot be updated")
}

func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: ledger_entries cannot be deleted")
}
