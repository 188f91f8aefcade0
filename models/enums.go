package models

type ExpenseType string

const (
	ExpenseTypeOperating     ExpenseType = "operating"
	ExpenseTypeStockPurchase ExpenseType = "stock_purchase"
)

func (t ExpenseType) IsValid() bool {
	switch t {
	case ExpenseTypeOperating, ExpenseTypeStockPurchase:
		return true
	}
	return false
}

func (t ExpenseType) String() string {
	return string(t)
}

// LedgerAccount is one of the fixed accounts of the double-entry ledger.
type LedgerAccount string

const (
	AccountCash             LedgerAccount = "cash"
	AccountRevenue          LedgerAccount = "revenue"
	AccountInventory        LedgerAccount = "inventory"
	AccountCategoryCapital  LedgerAccount = "category_capital"
	AccountOperatingExpense LedgerAccount = "operating_expense"
	AccountRetainedEarnings LedgerAccount = "retained_earnings"
)

var LedgerAccounts = []LedgerAccount{
	AccountCash,
	AccountRevenue,
	AccountInventory,
	AccountCategoryCapital,
	AccountOperatingExpense,
	AccountRetainedEarnings,
}

type LedgerReferenceType string

const (
	LedgerReferenceSale         LedgerReferenceType = "sale"
	LedgerReferenceRestock      LedgerReferenceType = "restock"
	LedgerReferenceExpense      LedgerReferenceType = "expense"
	LedgerReferenceDistribution LedgerReferenceType = "distribution"
	LedgerReferenceSaleReversal LedgerReferenceType = "sale_reversal"
)

func (t LedgerReferenceType) IsValid() bool {
	switch t {
	case LedgerReferenceSale, LedgerReferenceRestock, LedgerReferenceExpense,
		LedgerReferenceDistribution, LedgerReferenceSaleReversal:
		return true
	}
	return false
}

// OutboxEventType names the integration event written alongside each operation.
type OutboxEventType string

const (
	EventSaleCreated        OutboxEventType = "sale.created"
	EventInventoryRestocked OutboxEventType = "inventory.restocked"
	EventExpenseRecorded    OutboxEventType = "expense.recorded"
	EventProfitDistributed  OutboxEventType = "profit.distributed"
	EventSaleReversed       OutboxEventType = "sale.reversed"
	EventInventoryItemAdded OutboxEventType = "inventory.item_added"
	EventCategoryCreated    OutboxEventType = "category.created"
)
