// Package memstore is an in-memory models.LedgerStore. It keeps the same
// contract as the gorm store: row locks held until the transaction ends, and
// writes staged in the transaction and applied only on commit.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu    sync.Mutex
	locks *lockTable
	now   func() time.Time

	categories    map[uuid.UUID]*models.Category
	items         map[uuid.UUID]*models.InventoryItem
	capital       *models.CapitalStructure
	sales         map[uuid.UUID]*models.Sale
	saleOrder     []uuid.UUID
	expenses      []*models.Expense
	distributions []*models.Distribution
	archive       []*models.SalesArchive
	ledger        []*models.LedgerEntry
	outbox        []*models.OutboxEvent

	nextLedgerId int
	nextOutboxId int

	failCommit error
}

func New() *Store {
	return &Store{
		locks:      newLockTable(),
		now:        func() time.Time { return time.Now().UTC() },
		categories: make(map[uuid.UUID]*models.Category),
		items:      make(map[uuid.UUID]*models.InventoryItem),
		sales:      make(map[uuid.UUID]*models.Sale),
	}
}

// SetClock replaces the clock used for CreatedAt stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNextCommit makes the next commit fail with err after the callback has
// run, as a lost database connection would.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = err
}

// PutCategory, PutInventoryItem and PutCapitalStructure seed rows directly,
// bypassing the ledger. Intended for fixtures.
func (s *Store) PutCategory(c models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.categories[c.ID] = cloneCategory(&c)
}

func (s *Store) PutInventoryItem(i models.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = s.now()
	}
	s.items[i.ID] = cloneItem(&i)
}

func (s *Store) PutCapitalStructure(cs models.CapitalStructure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs.ID = models.CapitalStructureId
	s.capital = cloneCapital(&cs)
}

func (s *Store) Atomic(ctx context.Context, fn func(tx models.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	defer t.release()
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) EnsureCapitalStructure(ctx context.Context, ownerEquity decimal.Decimal) (*models.CapitalStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capital == nil {
		cs := models.NewCapitalStructure(ownerEquity)
		cs.UpdatedAt = s.now()
		s.capital = cs
	}
	return cloneCapital(s.capital), nil
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCommit != nil {
		err := s.failCommit
		s.failCommit = nil
		return err
	}
	if err := s.checkUnique(t); err != nil {
		return err
	}
	if t.capital != nil && s.capital != nil && t.capitalReadVersion != s.capital.Version {
		return fmt.Errorf("capital structure version conflict (expected version %d)", t.capitalReadVersion)
	}

	now := s.now()
	for _, c := range t.newCategories {
		c.CreatedAt = stamp(c.CreatedAt, now)
		c.UpdatedAt = now
		s.categories[c.ID] = cloneCategory(c)
	}
	for _, i := range t.newItems {
		i.CreatedAt = stamp(i.CreatedAt, now)
		i.UpdatedAt = now
		s.items[i.ID] = cloneItem(i)
	}
	for id, i := range t.items {
		if t.dirtyItems[id] {
			cp := cloneItem(i)
			cp.UpdatedAt = now
			s.items[id] = cp
		}
	}
	for id, c := range t.categories {
		if t.dirtyCategories[id] {
			cp := cloneCategory(c)
			cp.UpdatedAt = now
			s.categories[id] = cp
		}
	}
	if t.capital != nil && t.capitalDirty {
		cp := cloneCapital(t.capital)
		cp.UpdatedAt = now
		s.capital = cp
	}
	for _, sale := range t.newSales {
		sale.CreatedAt = stamp(sale.CreatedAt, now)
		for _, si := range sale.Items {
			si.SaleId = sale.ID
			si.CreatedAt = stamp(si.CreatedAt, now)
		}
		s.sales[sale.ID] = cloneSale(sale, true)
		s.saleOrder = append(s.saleOrder, sale.ID)
	}
	for _, id := range t.reversed {
		if sale, ok := s.sales[id]; ok {
			sale.Reversed = true
		}
	}
	for _, e := range t.newExpenses {
		e.CreatedAt = stamp(e.CreatedAt, now)
		s.expenses = append(s.expenses, cloneExpense(e))
	}
	for _, d := range t.newDistributions {
		d.CreatedAt = stamp(d.CreatedAt, now)
		cp := *d
		s.distributions = append(s.distributions, &cp)
	}
	for _, a := range t.newArchives {
		a.ArchivedAt = stamp(a.ArchivedAt, now)
		cp := *a
		s.archive = append(s.archive, &cp)
	}
	for _, e := range t.newLedger {
		s.nextLedgerId++
		e.ID = s.nextLedgerId
		e.CreatedAt = stamp(e.CreatedAt, now)
		cp := *e
		s.ledger = append(s.ledger, &cp)
	}
	for _, e := range t.newOutbox {
		s.nextOutboxId++
		e.ID = s.nextOutboxId
		e.CreatedAt = stamp(e.CreatedAt, now)
		e.UpdatedAt = now
		if e.PublishStatus == "" {
			e.PublishStatus = models.OutboxPublishStatusPending
		}
		s.outbox = append(s.outbox, cloneOutbox(e))
	}
	return nil
}

// checkUnique mirrors the unique indexes of the SQL schema.
func (s *Store) checkUnique(t *tx) error {
	for _, i := range t.newItems {
		for _, existing := range s.items {
			if existing.Sku == i.Sku {
				return utils.NewConflictError("inventory item with sku %q already exists", i.Sku)
			}
		}
	}
	for _, c := range t.newCategories {
		for _, existing := range s.categories {
			if existing.Name == c.Name {
				return utils.NewConflictError("category %q already exists", c.Name)
			}
		}
	}
	for _, a := range t.newArchives {
		for _, existing := range s.archive {
			if existing.OriginalSaleId == a.OriginalSaleId {
				return utils.NewConflictError("sale %s is already archived", a.OriginalSaleId)
			}
		}
	}
	return nil
}

func stamp(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func (s *Store) GetCapitalStructure(ctx context.Context) (*models.CapitalStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capital == nil {
		return nil, utils.NewNotFoundError("capital structure", models.CapitalStructureId)
	}
	return cloneCapital(s.capital), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]*models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		results = append(results, cloneCategory(c))
	}
	slices.SortFunc(results, func(a, b *models.Category) int { return strings.Compare(a.Name, b.Name) })
	return results, nil
}

func (s *Store) ListInventoryItems(ctx context.Context, filter models.InventoryFilter) ([]*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]*models.InventoryItem, 0, len(s.items))
	for _, i := range s.items {
		if filter.CategoryId != nil && i.CategoryId != *filter.CategoryId {
			continue
		}
		if filter.LowStockOnly && !i.IsLowStock() {
			continue
		}
		cp := cloneItem(i)
		if c, ok := s.categories[i.CategoryId]; ok {
			cp.Category = cloneCategory(c)
		}
		results = append(results, cp)
	}
	slices.SortFunc(results, func(a, b *models.InventoryItem) int { return strings.Compare(a.Name, b.Name) })
	return results, nil
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[id]
	if !ok {
		return nil, utils.NewNotFoundError("sale", id)
	}
	return cloneSale(sale, true), nil
}

func (s *Store) ListSales(ctx context.Context, filter models.SaleFilter) ([]*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []*models.Sale
	for i := len(s.saleOrder) - 1; i >= 0; i-- {
		sale := s.sales[s.saleOrder[i]]
		if filter.Reversed != nil && sale.Reversed != *filter.Reversed {
			continue
		}
		results = append(results, cloneSale(sale, filter.WithItems))
		if filter.Limit > 0 && len(results) == filter.Limit {
			break
		}
	}
	return results, nil
}

func (s *Store) ListSalesArchive(ctx context.Context) ([]*models.SalesArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]*models.SalesArchive, 0, len(s.archive))
	for i := len(s.archive) - 1; i >= 0; i-- {
		cp := *s.archive[i]
		results = append(results, &cp)
	}
	return results, nil
}

func (s *Store) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []*models.Expense
	for i := len(s.expenses) - 1; i >= 0; i-- {
		e := s.expenses[i]
		if filter.ExpenseType != nil && e.ExpenseType != *filter.ExpenseType {
			continue
		}
		if filter.CategoryId != nil && (e.CategoryId == nil || *e.CategoryId != *filter.CategoryId) {
			continue
		}
		cp := cloneExpense(e)
		if e.CategoryId != nil {
			if c, ok := s.categories[*e.CategoryId]; ok {
				cp.Category = cloneCategory(c)
			}
		}
		results = append(results, cp)
		if filter.Limit > 0 && len(results) == filter.Limit {
			break
		}
	}
	return results, nil
}

func (s *Store) ListDistributions(ctx context.Context) ([]*models.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]*models.Distribution, 0, len(s.distributions))
	for i := len(s.distributions) - 1; i >= 0; i-- {
		cp := *s.distributions[i]
		results = append(results, &cp)
	}
	return results, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []*models.LedgerEntry
	match := func(e *models.LedgerEntry) bool {
		if filter.ReferenceType != nil && e.ReferenceType != *filter.ReferenceType {
			return false
		}
		return filter.ReferenceId == "" || e.ReferenceId == filter.ReferenceId
	}
	add := func(e *models.LedgerEntry) bool {
		if !match(e) {
			return true
		}
		cp := *e
		results = append(results, &cp)
		return filter.Limit <= 0 || len(results) < filter.Limit
	}
	if filter.Ascending {
		for _, e := range s.ledger {
			if !add(e) {
				break
			}
		}
	} else {
		for i := len(s.ledger) - 1; i >= 0; i-- {
			if !add(s.ledger[i]) {
				break
			}
		}
	}
	return results, nil
}
