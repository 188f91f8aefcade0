package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type saleReversedEvent struct {
	SaleId       string          `json:"sale_id"`
	ArchiveId    string          `json:"archive_id"`
	Reason       string          `json:"reason"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
}

// ReverseSale undoes every effect of a sale using the prices recorded on its
// lines. A sale can be reversed once; the sale row stays, flagged and archived.
func (e *Engine) ReverseSale(ctx context.Context, req ReverseSaleRequest) (*ReverseSaleResult, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := e.validateStruct(req); err != nil {
		return nil, err
	}

	var result ReverseSaleResult
	attrs := []attribute.KeyValue{attribute.String("ledger.sale_id", req.SaleId.String())}
	err := e.execute(ctx, OpReverseSale, attrs, func(ctx context.Context, tx models.LedgerTx) error {
		sale, err := tx.GetSaleForUpdate(req.SaleId)
		if err != nil {
			return err
		}
		if sale.Reversed {
			return utils.NewBusinessRuleError(utils.CodeAlreadyReversed, "sale %s has already been reversed", sale.ID)
		}

		quantities := make(map[uuid.UUID]int, len(sale.Items))
		for _, si := range sale.Items {
			quantities[si.InventoryId] += si.Quantity
		}
		// Lines recorded without a category fall back to the item's current one.
		itemCategory := make(map[uuid.UUID]uuid.UUID, len(quantities))
		for _, inventoryId := range utils.SortedKeys(quantities, compareIds) {
			item, err := tx.GetInventoryItemForUpdate(inventoryId)
			if err != nil {
				return err
			}
			if err := item.Replenish(quantities[inventoryId]); err != nil {
				return err
			}
			if err := tx.SaveInventoryItem(item); err != nil {
				return err
			}
			itemCategory[inventoryId] = item.CategoryId
		}

		deltas := make(map[uuid.UUID]*categoryDelta)
		for _, si := range sale.Items {
			categoryId := si.CategoryId
			if categoryId == uuid.Nil {
				categoryId = itemCategory[si.InventoryId]
			}
			addCategoryDelta(deltas, categoryId, si.Revenue(), si.Profit)
		}
		for _, categoryId := range utils.SortedKeys(deltas, compareIds) {
			category, err := tx.GetCategoryForUpdate(categoryId)
			if err != nil {
				return err
			}
			d := deltas[categoryId]
			category.UndoSale(d.revenue, d.profit)
			if err := tx.SaveCategory(category); err != nil {
				return err
			}
		}

		cs, err := tx.GetCapitalStructureForUpdate()
		if err != nil {
			return err
		}
		cs.UndoProfit(sale.GrossProfit)
		if err := tx.SaveCapitalStructure(cs); err != nil {
			return err
		}

		if err := tx.MarkSaleReversed(sale.ID); err != nil {
			return err
		}
		sale.Reversed = true

		archive := &models.SalesArchive{
			ID:             e.newId(),
			OriginalSaleId: sale.ID,
			Reason:         req.Reason,
		}
		if err := tx.CreateSalesArchive(archive); err != nil {
			return err
		}
		entry := models.NewLedgerEntry(models.LedgerReferenceSaleReversal, sale.ID.String(),
			models.AccountRevenue, models.AccountCash, sale.TotalRevenue)
		if err := tx.AppendLedgerEntry(entry); err != nil {
			return err
		}

		result = ReverseSaleResult{Sale: sale, Archive: archive}
		return enqueueEvent(ctx, tx, models.EventSaleReversed, sale.ID.String(), saleReversedEvent{
			SaleId:       sale.ID.String(),
			ArchiveId:    archive.ID.String(),
			Reason:       archive.Reason,
			TotalRevenue: sale.TotalRevenue,
			GrossProfit:  sale.GrossProfit,
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
