package reports

import (
	"context"
	"io"
	"time"

	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	LedgerSheetName   = "Ledger"
	BalancesSheetName = "Balances"
	LedgerContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ledgerHeadings = []string{"ID", "Date", "Reference Type", "Reference ID", "Debit", "Credit", "Amount"}
var balanceHeadings = []string{"Account", "Debit", "Credit", "Balance"}

func setRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func headingRow(headings []string) []interface{} {
	row := make([]interface{}, len(headings))
	for i, h := range headings {
		row[i] = h
	}
	return row
}

// WriteLedgerWorkbook writes the entries, oldest first, and a trial balance.
func WriteLedgerWorkbook(w io.Writer, entries []*models.LedgerEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LedgerSheetName); err != nil {
		return err
	}
	if _, err := f.NewSheet(BalancesSheetName); err != nil {
		return err
	}

	if err := setRow(f, LedgerSheetName, 1, headingRow(ledgerHeadings)); err != nil {
		return err
	}
	for i, e := range entries {
		row := []interface{}{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			string(e.ReferenceType),
			e.ReferenceId,
			string(e.AccountDebited),
			string(e.AccountCredited),
			e.Amount.InexactFloat64(),
		}
		if err := setRow(f, LedgerSheetName, i+2, row); err != nil {
			return err
		}
	}

	if err := setRow(f, BalancesSheetName, 1, headingRow(balanceHeadings)); err != nil {
		return err
	}
	for i, tb := range GetTrialBalance(entries) {
		row := []interface{}{
			string(tb.Account),
			tb.Debit.InexactFloat64(),
			tb.Credit.InexactFloat64(),
			tb.Balance.InexactFloat64(),
		}
		if err := setRow(f, BalancesSheetName, i+2, row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// ExportLedger writes the whole ledger as an xlsx workbook.
func ExportLedger(ctx context.Context, reader models.LedgerReader, w io.Writer) error {
	started := time.Now()
	entries, err := reader.ListLedgerEntries(ctx, models.LedgerFilter{Ascending: true})
	if err != nil {
		return err
	}
	defer logSlowReport(ctx, "ledger_export", started, map[string]any{"entries": len(entries)})
	return WriteLedgerWorkbook(w, entries)
}
