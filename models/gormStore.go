package models

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the LedgerStore backed by MySQL or Postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Atomic(ctx context.Context, fn func(tx LedgerTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *GormStore) EnsureCapitalStructure(ctx context.Context, ownerEquity decimal.Decimal) (*CapitalStructure, error) {
	cs := NewCapitalStructure(ownerEquity)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(cs).Error; err != nil {
		return nil, translateError(err, "capital structure", CapitalStructureId)
	}
	return s.GetCapitalStructure(ctx)
}

func (s *GormStore) GetCapitalStructure(ctx context.Context) (*CapitalStructure, error) {
	var cs CapitalStructure
	if err := s.db.WithContext(ctx).Where("id = ?", CapitalStructureId).First(&cs).Error; err != nil {
		return nil, translateError(err, "capital structure", CapitalStructureId)
	}
	return &cs, nil
}

func (s *GormStore) ListCategories(ctx context.Context) ([]*Category, error) {
	var results []*Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GormStore) ListInventoryItems(ctx context.Context, filter InventoryFilter) ([]*InventoryItem, error) {
	q := s.db.WithContext(ctx).Preload("Category")
	if filter.CategoryId != nil {
		q = q.Where("category_id = ?", *filter.CategoryId)
	}
	if filter.LowStockOnly {
		q = q.Where("current_stock < minimum_stock")
	}
	var results []*InventoryItem
	if err := q.Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GormStore) GetSale(ctx context.Context, id uuid.UUID) (*Sale, error) {
	var sale Sale
	if err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, translateError(err, "sale", id)
	}
	return &sale, nil
}

func (s *GormStore) ListSales(ctx context.Context, filter SaleFilter) ([]*Sale, error) {
	q := s.db.WithContext(ctx)
	if filter.WithItems {
		q = q.Preload("Items")
	}
	if filter.Reversed != nil {
		q = q.Where("reversed = ?", *filter.Reversed)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var results []*Sale
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GormStore) ListSalesArchive(ctx context.Context) ([]*SalesArchive, error) {
	var results []*SalesArchive
	if err := s.db.WithContext(ctx).Order("archived_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GormStore) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*Expense, error) {
	q := s.db.WithContext(ctx).Preload("Category")
	if filter.ExpenseType != nil {
		q = q.Where("expense_type = ?", *filter.ExpenseType)
	}
	if filter.CategoryId != nil {
		q = q.Where("category_id = ?", *filter.CategoryId)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var results []*Expense
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GormStore) ListDistributions(ctx context.Context) ([]*Distribution, error) {
	var results []*Distribution
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GormStore) ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]*LedgerEntry, error) {
	q := s.db.WithContext(ctx)
	if filter.ReferenceType != nil {
		q = q.Where("reference_type = ?", *filter.ReferenceType)
	}
	if filter.ReferenceId != "" {
		q = q.Where("reference_id = ?", filter.ReferenceId)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	order := "id DESC"
	if filter.Ascending {
		order = "id ASC"
	}
	var results []*LedgerEntry
	if err := q.Order(order).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
