package reports

import (
	"bytes"
	"context"
	"testing"

	"github.com/mmdatafocus/retail_ledger_backend/memstore"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/xuri/excelize/v2"
)

func sampleEntries() []*models.LedgerEntry {
	entries := []*models.LedgerEntry{
		models.NewLedgerEntry(models.LedgerReferenceRestock, "item-1", models.AccountInventory, models.AccountCategoryCapital, dec("500")),
		models.NewLedgerEntry(models.LedgerReferenceSale, "sale-1", models.AccountCash, models.AccountRevenue, dec("35")),
		models.NewLedgerEntry(models.LedgerReferenceDistribution, "dist-1", models.AccountRetainedEarnings, models.AccountCash, dec("10")),
	}
	for i, e := range entries {
		e.ID = i + 1
	}
	return entries
}

func TestGetTrialBalance(t *testing.T) {
	balances := GetTrialBalance(sampleEntries())
	if len(balances) != len(models.LedgerAccounts) {
		t.Fatalf("expected %d rows, got %d", len(models.LedgerAccounts), len(balances))
	}
	want := map[models.LedgerAccount]string{
		models.AccountCash:             "25",
		models.AccountRevenue:          "-35",
		models.AccountInventory:        "500",
		models.AccountCategoryCapital:  "-500",
		models.AccountOperatingExpense: "0",
		models.AccountRetainedEarnings: "10",
	}
	total := dec("0")
	for _, tb := range balances {
		if !tb.Balance.Equal(dec(want[tb.Account])) {
			t.Fatalf("%s: expected %s, got %s", tb.Account, want[tb.Account], tb.Balance)
		}
		total = total.Add(tb.Balance)
	}
	if !total.IsZero() {
		t.Fatalf("debits and credits must balance, got %s", total)
	}
}

func TestWriteLedgerWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLedgerWorkbook(&buf, sampleEntries()); err != nil {
		t.Fatalf("WriteLedgerWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(LedgerSheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][6] != "Amount" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][2] != "restock" || rows[1][4] != "inventory" || rows[1][5] != "category_capital" || rows[1][6] != "500" {
		t.Fatalf("unexpected first row %v", rows[1])
	}

	balances, err := f.GetRows(BalancesSheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(balances) != len(models.LedgerAccounts)+1 {
		t.Fatalf("expected %d balance rows, got %d", len(models.LedgerAccounts)+1, len(balances))
	}
	if balances[1][0] != "cash" || balances[1][3] != "25" {
		t.Fatalf("unexpected cash row %v", balances[1])
	}
}

func TestExportLedger_EmptyStore(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportLedger(context.Background(), memstore.New(), &buf); err != nil {
		t.Fatalf("ExportLedger: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(LedgerSheetName)
	if len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d", len(rows))
	}
}
