package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/memstore"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T, retained string, opts ...Option) (*Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.PutCapitalStructure(models.CapitalStructure{
		TotalAssets:      dec("1000").Add(dec(retained)),
		RetainedEarnings: dec(retained),
		OwnerEquity:      dec("1000"),
		TotalLiabilities: decimal.Zero,
	})
	return NewEngine(store, opts...), store
}

func seedCategory(store *memstore.Store, name, allocated string) models.Category {
	c := models.Category{
		ID:               uuid.New(),
		Name:             name,
		AllocatedCapital: dec(allocated),
		Revenue:          decimal.Zero,
		RetainedEarnings: decimal.Zero,
	}
	store.PutCategory(c)
	return c
}

func seedItem(store *memstore.Store, category models.Category, sku, cost, price string, stock int) models.InventoryItem {
	i := models.InventoryItem{
		ID:           uuid.New(),
		Sku:          sku,
		Name:         "Item " + sku,
		CostPrice:    dec(cost),
		SellingPrice: dec(price),
		CurrentStock: stock,
		MinimumStock: 0,
		CategoryId:   category.ID,
	}
	store.PutInventoryItem(i)
	return i
}

// snapshot is the balance state an operation may touch.
type snapshot struct {
	stock      map[uuid.UUID]int
	revenue    map[uuid.UUID]decimal.Decimal
	retained   map[uuid.UUID]decimal.Decimal
	allocated  map[uuid.UUID]decimal.Decimal
	capital    models.CapitalStructure
	ledger     int
	outbox     int
	sales      int
	expenses   int
	archive    int
	distribute int
}

func takeSnapshot(t *testing.T, store *memstore.Store) snapshot {
	t.Helper()
	ctx := context.Background()
	s := snapshot{
		stock:     map[uuid.UUID]int{},
		revenue:   map[uuid.UUID]decimal.Decimal{},
		retained:  map[uuid.UUID]decimal.Decimal{},
		allocated: map[uuid.UUID]decimal.Decimal{},
	}
	items, err := store.ListInventoryItems(ctx, models.InventoryFilter{})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, i := range items {
		s.stock[i.ID] = i.CurrentStock
	}
	categories, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	for _, c := range categories {
		s.revenue[c.ID] = c.Revenue
		s.retained[c.ID] = c.RetainedEarnings
		s.allocated[c.ID] = c.AllocatedCapital
	}
	cs, err := store.GetCapitalStructure(ctx)
	if err != nil {
		t.Fatalf("get capital structure: %v", err)
	}
	s.capital = *cs
	ledger, _ := store.ListLedgerEntries(ctx, models.LedgerFilter{})
	s.ledger = len(ledger)
	s.outbox = len(store.OutboxEvents())
	sales, _ := store.ListSales(ctx, models.SaleFilter{})
	s.sales = len(sales)
	expenses, _ := store.ListExpenses(ctx, models.ExpenseFilter{})
	s.expenses = len(expenses)
	archive, _ := store.ListSalesArchive(ctx)
	s.archive = len(archive)
	distributions, _ := store.ListDistributions(ctx)
	s.distribute = len(distributions)
	return s
}

func assertSameBalances(t *testing.T, want, got snapshot) {
	t.Helper()
	for id, q := range want.stock {
		if got.stock[id] != q {
			t.Fatalf("stock of %s: want %d, got %d", id, q, got.stock[id])
		}
	}
	for id, v := range want.revenue {
		if !got.revenue[id].Equal(v) {
			t.Fatalf("revenue of %s: want %s, got %s", id, v, got.revenue[id])
		}
		if !got.retained[id].Equal(want.retained[id]) {
			t.Fatalf("retained earnings of %s: want %s, got %s", id, want.retained[id], got.retained[id])
		}
		if !got.allocated[id].Equal(want.allocated[id]) {
			t.Fatalf("allocated capital of %s: want %s, got %s", id, want.allocated[id], got.allocated[id])
		}
	}
	if !got.capital.RetainedEarnings.Equal(want.capital.RetainedEarnings) {
		t.Fatalf("capital retained earnings: want %s, got %s", want.capital.RetainedEarnings, got.capital.RetainedEarnings)
	}
	if !got.capital.TotalAssets.Equal(want.capital.TotalAssets) {
		t.Fatalf("capital total assets: want %s, got %s", want.capital.TotalAssets, got.capital.TotalAssets)
	}
}

// assertUnchanged also requires that no rows were appended.
func assertUnchanged(t *testing.T, want, got snapshot) {
	t.Helper()
	assertSameBalances(t, want, got)
	if got.capital.Version != want.capital.Version {
		t.Fatalf("capital version moved from %d to %d", want.capital.Version, got.capital.Version)
	}
	if got.ledger != want.ledger || got.outbox != want.outbox || got.sales != want.sales ||
		got.expenses != want.expenses || got.archive != want.archive || got.distribute != want.distribute {
		t.Fatalf("rows appended on failure: before %+v after %+v", want, got)
	}
}
