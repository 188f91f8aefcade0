package models

import (
	"time"

	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// CapitalStructureId is the primary key of the only capital_structures row.
const CapitalStructureId = 1

type CapitalStructure struct {
	ID               int             `gorm:"primary_key;autoIncrement:false" json:"id"`
	TotalAssets      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_assets"`
	RetainedEarnings decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"retained_earnings"`
	OwnerEquity      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"owner_equity"`
	TotalLiabilities decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_liabilities"`
	// Version increases on every write; updates are conditioned on it.
	Version   int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func NewCapitalStructure(ownerEquity decimal.Decimal) *CapitalStructure {
	return &CapitalStructure{
		ID:               CapitalStructureId,
		TotalAssets:      ownerEquity,
		RetainedEarnings: decimal.Zero,
		OwnerEquity:      ownerEquity,
		TotalLiabilities: decimal.Zero,
	}
}

// Deduct pays amount out of retained earnings (operating expense, distribution).
func (cs *CapitalStructure) Deduct(amount decimal.Decimal) error {
	if cs.RetainedEarnings.LessThan(amount) {
		return utils.NewBusinessRuleError(utils.CodeInsufficientRetainedEarnings,
			"insufficient retained earnings: available %s, required %s",
			cs.RetainedEarnings.StringFixed(2), amount.StringFixed(2))
	}
	cs.RetainedEarnings = cs.RetainedEarnings.Sub(amount)
	cs.TotalAssets = cs.TotalAssets.Sub(amount)
	return nil
}

func (cs *CapitalStructure) RecognizeProfit(profit decimal.Decimal) {
	cs.RetainedEarnings = cs.RetainedEarnings.Add(profit)
	cs.TotalAssets = cs.TotalAssets.Add(profit)
}

func (cs *CapitalStructure) UndoProfit(profit decimal.Decimal) {
	cs.RetainedEarnings = cs.RetainedEarnings.Sub(profit)
	cs.TotalAssets = cs.TotalAssets.Sub(profit)
}
