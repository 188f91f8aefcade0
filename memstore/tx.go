package memstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
)

type tx struct {
	s    *Store
	held map[string]*sync.Mutex

	items           map[uuid.UUID]*models.InventoryItem
	dirtyItems      map[uuid.UUID]bool
	categories      map[uuid.UUID]*models.Category
	dirtyCategories map[uuid.UUID]bool

	capital            *models.CapitalStructure
	capitalReadVersion int64
	capitalDirty       bool

	sales    map[uuid.UUID]*models.Sale
	reversed []uuid.UUID

	newItems         []*models.InventoryItem
	newCategories    []*models.Category
	newSales         []*models.Sale
	newExpenses      []*models.Expense
	newDistributions []*models.Distribution
	newArchives      []*models.SalesArchive
	newLedger        []*models.LedgerEntry
	newOutbox        []*models.OutboxEvent
}

func newTx(s *Store) *tx {
	return &tx{
		s:               s,
		held:            make(map[string]*sync.Mutex),
		items:           make(map[uuid.UUID]*models.InventoryItem),
		dirtyItems:      make(map[uuid.UUID]bool),
		categories:      make(map[uuid.UUID]*models.Category),
		dirtyCategories: make(map[uuid.UUID]bool),
		sales:           make(map[uuid.UUID]*models.Sale),
	}
}

// lock is re-entrant within one transaction.
func (t *tx) lock(key string) {
	if _, ok := t.held[key]; ok {
		return
	}
	m := t.s.locks.get(key)
	m.Lock()
	t.held[key] = m
}

func (t *tx) release() {
	for key, m := range t.held {
		m.Unlock()
		delete(t.held, key)
	}
}

func (t *tx) GetSaleForUpdate(id uuid.UUID) (*models.Sale, error) {
	t.lock(saleKey(id.String()))
	if sale, ok := t.sales[id]; ok {
		return cloneSale(sale, true), nil
	}
	for _, sale := range t.newSales {
		if sale.ID == id {
			t.sales[id] = cloneSale(sale, true)
			return cloneSale(sale, true), nil
		}
	}
	t.s.mu.Lock()
	sale, ok := t.s.sales[id]
	if ok {
		sale = cloneSale(sale, true)
	}
	t.s.mu.Unlock()
	if !ok {
		return nil, utils.NewNotFoundError("sale", id)
	}
	t.sales[id] = sale
	return cloneSale(sale, true), nil
}

func (t *tx) GetInventoryItemForUpdate(id uuid.UUID) (*models.InventoryItem, error) {
	t.lock(itemKey(id.String()))
	if item, ok := t.items[id]; ok {
		return cloneItem(item), nil
	}
	for _, item := range t.newItems {
		if item.ID == id {
			t.items[id] = cloneItem(item)
			return cloneItem(item), nil
		}
	}
	t.s.mu.Lock()
	item, ok := t.s.items[id]
	if ok {
		item = cloneItem(item)
	}
	t.s.mu.Unlock()
	if !ok {
		return nil, utils.NewNotFoundError("inventory item", id)
	}
	t.items[id] = item
	return cloneItem(item), nil
}

func (t *tx) GetCategoryForUpdate(id uuid.UUID) (*models.Category, error) {
	t.lock(categoryKey(id.String()))
	if c, ok := t.categories[id]; ok {
		return cloneCategory(c), nil
	}
	for _, c := range t.newCategories {
		if c.ID == id {
			t.categories[id] = cloneCategory(c)
			return cloneCategory(c), nil
		}
	}
	t.s.mu.Lock()
	c, ok := t.s.categories[id]
	if ok {
		c = cloneCategory(c)
	}
	t.s.mu.Unlock()
	if !ok {
		return nil, utils.NewNotFoundError("category", id)
	}
	t.categories[id] = c
	return cloneCategory(c), nil
}

func (t *tx) GetCapitalStructureForUpdate() (*models.CapitalStructure, error) {
	t.lock(capitalKey)
	if t.capital != nil {
		return cloneCapital(t.capital), nil
	}
	t.s.mu.Lock()
	cs := t.s.capital
	if cs != nil {
		cs = cloneCapital(cs)
	}
	t.s.mu.Unlock()
	if cs == nil {
		return nil, utils.NewNotFoundError("capital structure", models.CapitalStructureId)
	}
	t.capital = cs
	t.capitalReadVersion = cs.Version
	return cloneCapital(cs), nil
}

func (t *tx) InventorySkuExists(sku string) (bool, error) {
	t.lock(skuKey(sku))
	for _, item := range t.newItems {
		if item.Sku == sku {
			return true, nil
		}
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, item := range t.s.items {
		if item.Sku == sku {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CategoryNameExists(name string) (bool, error) {
	t.lock(categoryNameKey(name))
	for _, c := range t.newCategories {
		if c.Name == name {
			return true, nil
		}
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, c := range t.s.categories {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func ensureId(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (t *tx) CreateInventoryItem(item *models.InventoryItem) error {
	ensureId(&item.ID)
	t.newItems = append(t.newItems, item)
	return nil
}

func (t *tx) CreateCategory(category *models.Category) error {
	ensureId(&category.ID)
	t.newCategories = append(t.newCategories, category)
	return nil
}

func (t *tx) CreateSale(sale *models.Sale) error {
	ensureId(&sale.ID)
	for _, si := range sale.Items {
		ensureId(&si.ID)
	}
	t.newSales = append(t.newSales, sale)
	return nil
}

func (t *tx) CreateExpense(expense *models.Expense) error {
	ensureId(&expense.ID)
	t.newExpenses = append(t.newExpenses, expense)
	return nil
}

func (t *tx) CreateDistribution(distribution *models.Distribution) error {
	ensureId(&distribution.ID)
	t.newDistributions = append(t.newDistributions, distribution)
	return nil
}

func (t *tx) CreateSalesArchive(archive *models.SalesArchive) error {
	ensureId(&archive.ID)
	for _, a := range t.newArchives {
		if a.OriginalSaleId == archive.OriginalSaleId {
			return utils.NewConflictError("sale %s is already archived", archive.OriginalSaleId)
		}
	}
	t.newArchives = append(t.newArchives, archive)
	return nil
}

func (t *tx) AppendLedgerEntry(entry *models.LedgerEntry) error {
	t.newLedger = append(t.newLedger, entry)
	return nil
}

func (t *tx) EnqueueOutboxEvent(event *models.OutboxEvent) error {
	t.newOutbox = append(t.newOutbox, event)
	return nil
}

func (t *tx) SaveInventoryItem(item *models.InventoryItem) error {
	if _, ok := t.items[item.ID]; !ok {
		return fmt.Errorf("inventory item %s saved without being locked", item.ID)
	}
	t.items[item.ID] = cloneItem(item)
	t.dirtyItems[item.ID] = true
	return nil
}

func (t *tx) SaveCategory(category *models.Category) error {
	if _, ok := t.categories[category.ID]; !ok {
		return fmt.Errorf("category %s saved without being locked", category.ID)
	}
	t.categories[category.ID] = cloneCategory(category)
	t.dirtyCategories[category.ID] = true
	return nil
}

func (t *tx) SaveCapitalStructure(cs *models.CapitalStructure) error {
	if t.capital == nil {
		return fmt.Errorf("capital structure saved without being locked")
	}
	if cs.Version != t.capital.Version {
		return fmt.Errorf("capital structure version conflict (expected version %d)", cs.Version)
	}
	cs.Version++
	t.capital = cloneCapital(cs)
	t.capitalDirty = true
	return nil
}

func (t *tx) MarkSaleReversed(id uuid.UUID) error {
	sale, ok := t.sales[id]
	if !ok {
		return fmt.Errorf("sale %s reversed without being locked", id)
	}
	if sale.Reversed {
		return utils.NewBusinessRuleError(utils.CodeAlreadyReversed, "sale %s is already reversed", id)
	}
	sale.Reversed = true
	t.reversed = append(t.reversed, id)
	return nil
}
