package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	ExpenseType ExpenseType     `gorm:"size:32;not null;index" json:"expense_type"`
	CategoryId  *uuid.UUID      `gorm:"type:char(36);index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryId" json:"category,omitempty"`
	Note        string          `gorm:"type:text" json:"note"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
