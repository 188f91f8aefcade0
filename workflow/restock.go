package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type restockEvent struct {
	InventoryId string          `json:"inventory_id"`
	CategoryId  string          `json:"category_id"`
	Quantity    int             `json:"quantity"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	ExpenseId   string          `json:"expense_id"`
}

// Restock buys stock at cost out of the item's category capital.
func (e *Engine) Restock(ctx context.Context, req RestockRequest) (*RestockResult, error) {
	if err := e.validateStruct(req); err != nil {
		return nil, err
	}

	var result RestockResult
	attrs := []attribute.KeyValue{
		attribute.String("ledger.inventory_id", req.InventoryId.String()),
		attribute.Int("ledger.quantity", req.Quantity),
	}
	err := e.execute(ctx, OpRestock, attrs, func(ctx context.Context, tx models.LedgerTx) error {
		item, err := tx.GetInventoryItemForUpdate(req.InventoryId)
		if err != nil {
			return err
		}
		category, err := tx.GetCategoryForUpdate(item.CategoryId)
		if err != nil {
			return err
		}

		totalCost := item.CostPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
		if err := category.SpendCapital(totalCost); err != nil {
			return err
		}
		if err := item.Replenish(req.Quantity); err != nil {
			return err
		}

		if err := tx.SaveInventoryItem(item); err != nil {
			return err
		}
		if err := tx.SaveCategory(category); err != nil {
			return err
		}

		categoryId := category.ID
		expense := &models.Expense{
			ID:          e.newId(),
			Amount:      totalCost,
			ExpenseType: models.ExpenseTypeStockPurchase,
			CategoryId:  &categoryId,
			Note:        fmt.Sprintf("Restock %d units of %s", req.Quantity, item.Name),
		}
		if err := tx.CreateExpense(expense); err != nil {
			return err
		}
		entry := models.NewLedgerEntry(models.LedgerReferenceRestock, item.ID.String(),
			models.AccountInventory, models.AccountCategoryCapital, totalCost)
		if err := tx.AppendLedgerEntry(entry); err != nil {
			return err
		}

		result = RestockResult{Item: item, Expense: expense}
		return enqueueEvent(ctx, tx, models.EventInventoryRestocked, item.ID.String(), restockEvent{
			InventoryId: item.ID.String(),
			CategoryId:  category.ID.String(),
			Quantity:    req.Quantity,
			TotalCost:   totalCost,
			ExpenseId:   expense.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
