package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Sale struct {
	ID           uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	TotalRevenue decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_revenue"`
	TotalCost    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_cost"`
	GrossProfit  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"gross_profit"`
	Reversed     bool            `gorm:"not null;default:false;index" json:"reversed"`
	Items        []*SaleItem     `gorm:"foreignKey:SaleId" json:"items,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// SaleItem records the prices in force when the sale was made. Reversal
// uses these values, never the item's current prices.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	SaleId      uuid.UUID       `gorm:"type:char(36);not null;index" json:"sale_id"`
	InventoryId uuid.UUID       `gorm:"type:char(36);not null;index" json:"inventory_id"`
	CategoryId  uuid.UUID       `gorm:"type:char(36);index" json:"category_id"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"price"`
	Cost        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cost"`
	Profit      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"profit"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func NewSale(id uuid.UUID) *Sale {
	return &Sale{
		ID:           id,
		TotalRevenue: decimal.Zero,
		TotalCost:    decimal.Zero,
		GrossProfit:  decimal.Zero,
	}
}

// AddLine appends a line priced from item and rolls it into the sale totals.
func (s *Sale) AddLine(id uuid.UUID, item *InventoryItem, qty int) *SaleItem {
	q := decimal.NewFromInt(int64(qty))
	line := &SaleItem{
		ID:          id,
		SaleId:      s.ID,
		InventoryId: item.ID,
		CategoryId:  item.CategoryId,
		Quantity:    qty,
		Price:       item.SellingPrice,
		Cost:        item.CostPrice,
		Profit:      item.SellingPrice.Sub(item.CostPrice).Mul(q),
	}
	s.Items = append(s.Items, line)
	s.TotalRevenue = s.TotalRevenue.Add(line.Revenue())
	s.TotalCost = s.TotalCost.Add(line.TotalCost())
	s.GrossProfit = s.TotalRevenue.Sub(s.TotalCost)
	return line
}

func (si *SaleItem) Revenue() decimal.Decimal {
	return si.Price.Mul(decimal.NewFromInt(int64(si.Quantity)))
}

func (si *SaleItem) TotalCost() decimal.Decimal {
	return si.Cost.Mul(decimal.NewFromInt(int64(si.Quantity)))
}

// CheckTotals verifies the header totals against the recorded lines.
func (s *Sale) CheckTotals() error {
	revenue, cost, profit := decimal.Zero, decimal.Zero, decimal.Zero
	for _, si := range s.Items {
		revenue = revenue.Add(si.Revenue())
		cost = cost.Add(si.TotalCost())
		profit = profit.Add(si.Profit)
	}
	if !revenue.Equal(s.TotalRevenue) {
		return fmt.Errorf("sale %s: line revenue %s does not match total revenue %s", s.ID, revenue, s.TotalRevenue)
	}
	if !cost.Equal(s.TotalCost) {
		return fmt.Errorf("sale %s: line cost %s does not match total cost %s", s.ID, cost, s.TotalCost)
	}
	if !s.GrossProfit.Equal(s.TotalRevenue.Sub(s.TotalCost)) || !profit.Equal(s.GrossProfit) {
		return fmt.Errorf("sale %s: gross profit %s does not match revenue minus cost", s.ID, s.GrossProfit)
	}
	return nil
}
