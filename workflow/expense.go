package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"go.opentelemetry.io/otel/attribute"
)

// AddExpense records an expense. Stock purchases are paid from a category's
// allocated capital, operating expenses from company retained earnings.
func (e *Engine) AddExpense(ctx context.Context, req AddExpenseRequest) (*models.Expense, error) {
	req.Note = strings.TrimSpace(req.Note)
	if err := e.validateStruct(req); err != nil {
		return nil, err
	}
	if err := utils.CheckAmount("amount", req.Amount); err != nil {
		return nil, err
	}
	hasCategory := req.CategoryId != nil && *req.CategoryId != uuid.Nil
	switch req.ExpenseType {
	case models.ExpenseTypeStockPurchase:
		if !hasCategory {
			return nil, utils.NewValidationError("category_id is required for stock_purchase expenses")
		}
	case models.ExpenseTypeOperating:
		if hasCategory {
			return nil, utils.NewValidationError("category_id must be empty for operating expenses")
		}
	}

	expense := &models.Expense{
		ID:          e.newId(),
		Amount:      req.Amount,
		ExpenseType: req.ExpenseType,
		Note:        req.Note,
	}
	attrs := []attribute.KeyValue{
		attribute.String("ledger.expense_type", req.ExpenseType.String()),
		attribute.String("ledger.amount", req.Amount.String()),
	}
	err := e.execute(ctx, OpAddExpense, attrs, func(ctx context.Context, tx models.LedgerTx) error {
		var entry *models.LedgerEntry
		if req.ExpenseType == models.ExpenseTypeStockPurchase {
			category, err := tx.GetCategoryForUpdate(*req.CategoryId)
			if err != nil {
				return err
			}
			if err := category.SpendCapital(req.Amount); err != nil {
				return err
			}
			if err := tx.SaveCategory(category); err != nil {
				return err
			}
			categoryId := category.ID
			expense.CategoryId = &categoryId
			entry = models.NewLedgerEntry(models.LedgerReferenceExpense, expense.ID.String(),
				models.AccountInventory, models.AccountCategoryCapital, req.Amount)
		} else {
			cs, err := tx.GetCapitalStructureForUpdate()
			if err != nil {
				return err
			}
			if err := cs.Deduct(req.Amount); err != nil {
				return err
			}
			if err := tx.SaveCapitalStructure(cs); err != nil {
				return err
			}
			entry = models.NewLedgerEntry(models.LedgerReferenceExpense, expense.ID.String(),
				models.AccountOperatingExpense, models.AccountCash, req.Amount)
		}

		if err := tx.CreateExpense(expense); err != nil {
			return err
		}
		if err := tx.AppendLedgerEntry(entry); err != nil {
			return err
		}
		return enqueueEvent(ctx, tx, models.EventExpenseRecorded, expense.ID.String(), expense)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}
