package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) GetSaleForUpdate(id uuid.UUID) (*Sale, error) {
	var sale Sale
	if err := t.forUpdate().Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, translateError(err, "sale", id)
	}
	// sale_items are append-only, the sale row lock is enough.
	if err := t.db.Where("sale_id = ?", id).Order("created_at ASC, id ASC").Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (t *gormTx) GetInventoryItemForUpdate(id uuid.UUID) (*InventoryItem, error) {
	var item InventoryItem
	if err := t.forUpdate().Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translateError(err, "inventory item", id)
	}
	return &item, nil
}

func (t *gormTx) GetCategoryForUpdate(id uuid.UUID) (*Category, error) {
	var category Category
	if err := t.forUpdate().Where("id = ?", id).First(&category).Error; err != nil {
		return nil, translateError(err, "category", id)
	}
	return &category, nil
}

func (t *gormTx) GetCapitalStructureForUpdate() (*CapitalStructure, error) {
	var cs CapitalStructure
	if err := t.forUpdate().Where("id = ?", CapitalStructureId).First(&cs).Error; err != nil {
		return nil, translateError(err, "capital structure", CapitalStructureId)
	}
	return &cs, nil
}

func (t *gormTx) InventorySkuExists(sku string) (bool, error) {
	var count int64
	if err := t.db.Model(&InventoryItem{}).Where("sku = ?", sku).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *gormTx) CategoryNameExists(name string) (bool, error) {
	var count int64
	if err := t.db.Model(&Category{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *gormTx) CreateInventoryItem(item *InventoryItem) error {
	return translateError(t.db.Omit(clause.Associations).Create(item).Error, "inventory item", item.Sku)
}

func (t *gormTx) CreateCategory(category *Category) error {
	return translateError(t.db.Create(category).Error, "category", category.Name)
}

// CreateSale inserts the header and its lines.
func (t *gormTx) CreateSale(sale *Sale) error {
	return translateError(t.db.Create(sale).Error, "sale", sale.ID)
}

func (t *gormTx) CreateExpense(expense *Expense) error {
	return translateError(t.db.Omit(clause.Associations).Create(expense).Error, "expense", expense.ID)
}

func (t *gormTx) CreateDistribution(distribution *Distribution) error {
	return translateError(t.db.Create(distribution).Error, "distribution", distribution.ID)
}

func (t *gormTx) CreateSalesArchive(archive *SalesArchive) error {
	return translateError(t.db.Create(archive).Error, "sales archive", archive.OriginalSaleId)
}

func (t *gormTx) AppendLedgerEntry(entry *LedgerEntry) error {
	return translateError(t.db.Create(entry).Error, "ledger entry", entry.ReferenceId)
}

func (t *gormTx) EnqueueOutboxEvent(event *OutboxEvent) error {
	if event.PublishStatus == "" {
		event.PublishStatus = OutboxPublishStatusPending
	}
	return translateError(t.db.Create(event).Error, "outbox event", event.ReferenceId)
}

// MySQL reports zero affected rows when values do not change, so the row
// updates below rely on the row lock instead of RowsAffected.
func (t *gormTx) SaveInventoryItem(item *InventoryItem) error {
	return t.db.Model(&InventoryItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"current_stock": item.CurrentStock,
	}).Error
}

func (t *gormTx) SaveCategory(category *Category) error {
	return t.db.Model(&Category{}).Where("id = ?", category.ID).Updates(map[string]interface{}{
		"allocated_capital": category.AllocatedCapital,
		"revenue":           category.Revenue,
		"retained_earnings": category.RetainedEarnings,
	}).Error
}

func (t *gormTx) SaveCapitalStructure(cs *CapitalStructure) error {
	res := t.db.Model(&CapitalStructure{}).
		Where("id = ? AND version = ?", cs.ID, cs.Version).
		Updates(map[string]interface{}{
			"total_assets":      cs.TotalAssets,
			"retained_earnings": cs.RetainedEarnings,
			"owner_equity":      cs.OwnerEquity,
			"total_liabilities": cs.TotalLiabilities,
			"version":           cs.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("capital structure version conflict (expected version %d)", cs.Version)
	}
	cs.Version++
	return nil
}

func (t *gormTx) MarkSaleReversed(id uuid.UUID) error {
	res := t.db.Model(&Sale{}).Where("id = ? AND reversed = ?", id, false).Update("reversed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewBusinessRuleError(utils.CodeAlreadyReversed, "sale %s is already reversed", id)
	}
	return nil
}
