package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Category is a product category and its capital pool. Revenue and
// RetainedEarnings are cumulative; AllocatedCapital is what restocks draw on.
type Category struct {
	ID               uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	Name             string          `gorm:"size:255;not null;uniqueIndex" json:"name"`
	AllocatedCapital decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"allocated_capital"`
	Revenue          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"revenue"`
	RetainedEarnings decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"retained_earnings"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Category) SpendCapital(amount decimal.Decimal) error {
	if c.AllocatedCapital.LessThan(amount) {
		return utils.NewBusinessRuleError(utils.CodeInsufficientCapital,
			"insufficient capital in category %s: available %s, required %s",
			c.Name, c.AllocatedCapital.StringFixed(2), amount.StringFixed(2))
	}
	c.AllocatedCapital = c.AllocatedCapital.Sub(amount)
	return nil
}

func (c *Category) RecordSale(revenue, profit decimal.Decimal) {
	c.Revenue = c.Revenue.Add(revenue)
	c.RetainedEarnings = c.RetainedEarnings.Add(profit)
}

// UndoSale may take RetainedEarnings below zero; it mirrors RecordSale exactly.
func (c *Category) UndoSale(revenue, profit decimal.Decimal) {
	c.Revenue = c.Revenue.Sub(revenue)
	c.RetainedEarnings = c.RetainedEarnings.Sub(profit)
}
