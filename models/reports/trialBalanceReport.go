package reports

import (
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/shopspring/decimal"
)

type TrialBalance struct {
	Account models.LedgerAccount `json:"account"`
	Debit   decimal.Decimal      `json:"debit"`
	Credit  decimal.Decimal      `json:"credit"`
	// Balance is Debit - Credit.
	Balance decimal.Decimal `json:"balance"`
}

// GetTrialBalance totals the entries per account, one row for every account
// in the fixed chart, in chart order.
func GetTrialBalance(entries []*models.LedgerEntry) []*TrialBalance {
	byAccount := make(map[models.LedgerAccount]*TrialBalance, len(models.LedgerAccounts))
	balances := make([]*TrialBalance, 0, len(models.LedgerAccounts))
	for _, account := range models.LedgerAccounts {
		tb := &TrialBalance{Account: account, Debit: decimal.Zero, Credit: decimal.Zero, Balance: decimal.Zero}
		byAccount[account] = tb
		balances = append(balances, tb)
	}
	for _, e := range entries {
		if tb, ok := byAccount[e.AccountDebited]; ok {
			tb.Debit = tb.Debit.Add(e.Amount)
		}
		if tb, ok := byAccount[e.AccountCredited]; ok {
			tb.Credit = tb.Credit.Add(e.Amount)
		}
	}
	for _, tb := range balances {
		tb.Balance = tb.Debit.Sub(tb.Credit)
	}
	return balances
}
