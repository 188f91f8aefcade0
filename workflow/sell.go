package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"go.opentelemetry.io/otel/attribute"
)

// Sell records a sale. Lines for the same item are merged before the stock
// check so a request cannot oversell by splitting a quantity.
func (e *Engine) Sell(ctx context.Context, req SellRequest) (*SellResult, error) {
	if err := e.validateStruct(req); err != nil {
		return nil, err
	}
	lines, err := mergeSellLines(req.Items)
	if err != nil {
		return nil, err
	}

	var sale *models.Sale
	attrs := []attribute.KeyValue{attribute.Int("ledger.sell.lines", len(lines))}
	err = e.execute(ctx, OpSell, attrs, func(ctx context.Context, tx models.LedgerTx) error {
		sale = models.NewSale(e.newId())

		items := make([]*models.InventoryItem, 0, len(lines))
		for _, line := range lines {
			item, err := tx.GetInventoryItemForUpdate(line.InventoryId)
			if err != nil {
				return err
			}
			if err := item.Withdraw(line.Quantity); err != nil {
				return err
			}
			sale.AddLine(e.newId(), item, line.Quantity)
			items = append(items, item)
		}
		if err := sale.CheckTotals(); err != nil {
			return err
		}
		if err := utils.CheckAmount("sale total", sale.TotalRevenue); err != nil {
			return err
		}

		deltas := make(map[uuid.UUID]*categoryDelta)
		for _, si := range sale.Items {
			addCategoryDelta(deltas, si.CategoryId, si.Revenue(), si.Profit)
		}
		for _, categoryId := range utils.SortedKeys(deltas, compareIds) {
			category, err := tx.GetCategoryForUpdate(categoryId)
			if err != nil {
				return err
			}
			d := deltas[categoryId]
			category.RecordSale(d.revenue, d.profit)
			if err := tx.SaveCategory(category); err != nil {
				return err
			}
		}

		cs, err := tx.GetCapitalStructureForUpdate()
		if err != nil {
			return err
		}
		cs.RecognizeProfit(sale.GrossProfit)
		if err := tx.SaveCapitalStructure(cs); err != nil {
			return err
		}

		for _, item := range items {
			if err := tx.SaveInventoryItem(item); err != nil {
				return err
			}
		}
		if err := tx.CreateSale(sale); err != nil {
			return err
		}
		entry := models.NewLedgerEntry(models.LedgerReferenceSale, sale.ID.String(),
			models.AccountCash, models.AccountRevenue, sale.TotalRevenue)
		if err := tx.AppendLedgerEntry(entry); err != nil {
			return err
		}
		return enqueueEvent(ctx, tx, models.EventSaleCreated, sale.ID.String(), sale)
	})
	if err != nil {
		return nil, err
	}
	return &SellResult{SaleId: sale.ID, Sale: sale}, nil
}
