package workflow

import (
	"context"
	"strings"

	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"go.opentelemetry.io/otel/attribute"
)

// AddInventoryItem registers a new item with zero stock. Stock only arrives
// through Restock, which pays for it.
func (e *Engine) AddInventoryItem(ctx context.Context, req AddInventoryItemRequest) (*models.InventoryItem, error) {
	req.Sku = strings.TrimSpace(req.Sku)
	req.Name = strings.TrimSpace(req.Name)
	if err := e.validateStruct(req); err != nil {
		return nil, err
	}
	if err := utils.CheckAmount("cost_price", req.CostPrice); err != nil {
		return nil, err
	}
	if err := utils.CheckAmount("selling_price", req.SellingPrice); err != nil {
		return nil, err
	}
	if req.SellingPrice.LessThan(req.CostPrice) {
		return nil, utils.NewBusinessRuleError(utils.CodeSellingPriceBelowCost,
			"selling price %s is below cost price %s", req.SellingPrice.StringFixed(2), req.CostPrice.StringFixed(2))
	}

	item := &models.InventoryItem{
		ID:           e.newId(),
		Sku:          req.Sku,
		Name:         req.Name,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		CurrentStock: 0,
		MinimumStock: req.MinimumStock,
		CategoryId:   req.CategoryId,
	}
	attrs := []attribute.KeyValue{
		attribute.String("ledger.sku", req.Sku),
		attribute.String("ledger.category_id", req.CategoryId.String()),
	}
	err := e.execute(ctx, OpAddInventoryItem, attrs, func(ctx context.Context, tx models.LedgerTx) error {
		exists, err := tx.InventorySkuExists(item.Sku)
		if err != nil {
			return err
		}
		if exists {
			return utils.NewConflictError("inventory item with sku %q already exists", item.Sku)
		}
		// Locking the category keeps it in place while the item is attached.
		category, err := tx.GetCategoryForUpdate(item.CategoryId)
		if err != nil {
			return err
		}
		if err := tx.CreateInventoryItem(item); err != nil {
			return err
		}
		item.Category = category
		return enqueueEvent(ctx, tx, models.EventInventoryItemAdded, item.ID.String(), item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CreateCategory opens a category with its allocated capital pool.
func (e *Engine) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := e.validateStruct(req); err != nil {
		return nil, err
	}
	if err := utils.CheckAmount("allocated_capital", req.AllocatedCapital); err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:               e.newId(),
		Name:             req.Name,
		AllocatedCapital: req.AllocatedCapital,
	}
	attrs := []attribute.KeyValue{attribute.String("ledger.category_name", req.Name)}
	err := e.execute(ctx, OpCreateCategory, attrs, func(ctx context.Context, tx models.LedgerTx) error {
		exists, err := tx.CategoryNameExists(category.Name)
		if err != nil {
			return err
		}
		if exists {
			return utils.NewConflictError("category %q already exists", category.Name)
		}
		if err := tx.CreateCategory(category); err != nil {
			return err
		}
		return enqueueEvent(ctx, tx, models.EventCategoryCreated, category.ID.String(), category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}
