package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerTx is the transactional view handed to LedgerStore.Atomic callbacks.
// The ForUpdate getters lock the row until the transaction ends; callers must
// take them in the order sale, inventory items, categories, capital structure.
type LedgerTx interface {
	GetSaleForUpdate(id uuid.UUID) (*Sale, error)
	GetInventoryItemForUpdate(id uuid.UUID) (*InventoryItem, error)
	GetCategoryForUpdate(id uuid.UUID) (*Category, error)
	GetCapitalStructureForUpdate() (*CapitalStructure, error)

	InventorySkuExists(sku string) (bool, error)
	CategoryNameExists(name string) (bool, error)

	CreateInventoryItem(item *InventoryItem) error
	CreateCategory(category *Category) error
	CreateSale(sale *Sale) error
	CreateExpense(expense *Expense) error
	CreateDistribution(distribution *Distribution) error
	CreateSalesArchive(archive *SalesArchive) error
	AppendLedgerEntry(entry *LedgerEntry) error
	EnqueueOutboxEvent(event *OutboxEvent) error

	// Save* write back the balance columns of a row previously locked in this transaction.
	SaveInventoryItem(item *InventoryItem) error
	SaveCategory(category *Category) error
	SaveCapitalStructure(cs *CapitalStructure) error
	MarkSaleReversed(id uuid.UUID) error
}

type InventoryFilter struct {
	CategoryId   *uuid.UUID
	LowStockOnly bool
}

type SaleFilter struct {
	Reversed  *bool
	WithItems bool
	Limit     int
}

type ExpenseFilter struct {
	ExpenseType *ExpenseType
	CategoryId  *uuid.UUID
	Limit       int
}

type LedgerFilter struct {
	ReferenceType *LedgerReferenceType
	ReferenceId   string
	// Ascending returns oldest first; the default is newest first.
	Ascending bool
	Limit     int
}

// LedgerReader serves dashboards and listings. Results are newest first
// unless a filter says otherwise.
type LedgerReader interface {
	GetCapitalStructure(ctx context.Context) (*CapitalStructure, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	ListInventoryItems(ctx context.Context, filter InventoryFilter) ([]*InventoryItem, error)
	GetSale(ctx context.Context, id uuid.UUID) (*Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]*Sale, error)
	ListSalesArchive(ctx context.Context) ([]*SalesArchive, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*Expense, error)
	ListDistributions(ctx context.Context) ([]*Distribution, error)
	ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]*LedgerEntry, error)
}

type OutboxClaim struct {
	WorkerId    string
	Limit       int
	Now         time.Time
	StaleBefore time.Time
	// MaxAttempts > 0 moves rows that already used their attempts to DEAD
	// instead of claiming them.
	MaxAttempts int
}

type OutboxRepository interface {
	ClaimOutboxEvents(ctx context.Context, claim OutboxClaim) ([]*OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id int, messageId string, at time.Time) error
	MarkOutboxFailed(ctx context.Context, id int, reason string, nextAttemptAt *time.Time, dead bool) error
	GetOutboxEvent(ctx context.Context, id int) (*OutboxEvent, error)
	ListOutboxEvents(ctx context.Context, filter OutboxFilter) ([]*OutboxEvent, error)
	ReplayOutboxEvent(ctx context.Context, id int, at time.Time) (*OutboxEvent, error)
}

type LedgerStore interface {
	LedgerReader
	OutboxRepository

	// Atomic runs fn in one transaction: everything fn wrote commits together
	// or, when fn returns an error, nothing does.
	Atomic(ctx context.Context, fn func(tx LedgerTx) error) error

	// EnsureCapitalStructure creates the singleton row with the given opening
	// owner equity unless it already exists, and returns the stored row.
	EnsureCapitalStructure(ctx context.Context, ownerEquity decimal.Decimal) (*CapitalStructure, error)
}
