package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// MaxQuantity bounds a single requested quantity and the stock held for one item.
const MaxQuantity = 1_000_000_000

type InventoryItem struct {
	ID           uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	Sku          string          `gorm:"size:100;not null;uniqueIndex" json:"sku"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"selling_price"`
	CurrentStock int             `gorm:"not null;default:0" json:"current_stock"`
	MinimumStock int             `gorm:"not null;default:0" json:"minimum_stock"`
	CategoryId   uuid.UUID       `gorm:"type:char(36);not null;index" json:"category_id"`
	Category     *Category       `gorm:"foreignKey:CategoryId" json:"category,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Withdraw removes qty units, refusing to take stock below zero.
func (i *InventoryItem) Withdraw(qty int) error {
	if qty <= 0 || qty > MaxQuantity {
		return utils.NewValidationError("quantity must be between 1 and %d, got %d", MaxQuantity, qty)
	}
	if i.CurrentStock < qty {
		return utils.NewBusinessRuleError(utils.CodeInsufficientStock,
			"insufficient stock for %s: available %d, requested %d", i.Name, i.CurrentStock, qty)
	}
	i.CurrentStock -= qty
	return nil
}

// Replenish adds qty units, refusing to push stock past MaxQuantity.
func (i *InventoryItem) Replenish(qty int) error {
	if qty <= 0 || qty > MaxQuantity {
		return utils.NewValidationError("quantity must be between 1 and %d, got %d", MaxQuantity, qty)
	}
	if i.CurrentStock > MaxQuantity-qty {
		return utils.NewBusinessRuleError(utils.CodeStockLimitExceeded,
			"stock limit exceeded for %s: holding %d, adding %d, limit %d", i.Name, i.CurrentStock, qty, MaxQuantity)
	}
	i.CurrentStock += qty
	return nil
}

func (i *InventoryItem) IsLowStock() bool {
	return i.CurrentStock < i.MinimumStock
}

// StockValue is the inventory valuation at cost.
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.CostPrice.Mul(decimal.NewFromInt(int64(i.CurrentStock)))
}
