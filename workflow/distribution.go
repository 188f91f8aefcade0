package workflow

import (
	"context"
	"strings"

	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"go.opentelemetry.io/otel/attribute"
)

// DistributeProfit pays retained earnings out to an owner or partner.
func (e *Engine) DistributeProfit(ctx context.Context, req DistributeProfitRequest) (*models.Distribution, error) {
	req.DistributedTo = strings.TrimSpace(req.DistributedTo)
	if err := e.validateStruct(req); err != nil {
		return nil, err
	}
	if err := utils.CheckAmount("amount", req.Amount); err != nil {
		return nil, err
	}

	distribution := &models.Distribution{
		ID:            e.newId(),
		Amount:        req.Amount,
		DistributedTo: req.DistributedTo,
	}
	attrs := []attribute.KeyValue{attribute.String("ledger.amount", req.Amount.String())}
	err := e.execute(ctx, OpDistributeProfit, attrs, func(ctx context.Context, tx models.LedgerTx) error {
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
		if err := tx.CreateDistribution(distribution); err != nil {
			return err
		}
		entry := models.NewLedgerEntry(models.LedgerReferenceDistribution, distribution.ID.String(),
			models.AccountRetainedEarnings, models.AccountCash, req.Amount)
		if err := tx.AppendLedgerEntry(entry); err != nil {
			return err
		}
		return enqueueEvent(ctx, tx, models.EventProfitDistributed, distribution.ID.String(), distribution)
	})
	if err != nil {
		return nil, err
	}
	return distribution, nil
}
