package memstore

import "github.com/mmdatafocus/retail_ledger_backend/models"

func cloneItem(i *models.InventoryItem) *models.InventoryItem {
	c := *i
	c.Category = nil
	return &c
}

func cloneCategory(c *models.Category) *models.Category {
	cp := *c
	return &cp
}

func cloneCapital(cs *models.CapitalStructure) *models.CapitalStructure {
	cp := *cs
	return &cp
}

func cloneSale(s *models.Sale, withItems bool) *models.Sale {
	cp := *s
	cp.Items = nil
	if withItems {
		cp.Items = make([]*models.SaleItem, 0, len(s.Items))
		for _, si := range s.Items {
			line := *si
			cp.Items = append(cp.Items, &line)
		}
	}
	return &cp
}

func cloneExpense(e *models.Expense) *models.Expense {
	cp := *e
	cp.Category = nil
	if e.CategoryId != nil {
		id := *e.CategoryId
		cp.CategoryId = &id
	}
	return &cp
}

func cloneOutbox(e *models.OutboxEvent) *models.OutboxEvent {
	cp := *e
	return &cp
}
