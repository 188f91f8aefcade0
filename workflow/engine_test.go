package workflow

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
)

func TestEngine_OneLedgerEntryAndEventPerOperation(t *testing.T) {
	ctx := utils.SetCorrelationIdInContext(context.Background(), "corr-42")
	ctx = utils.SetIdempotencyKeyInContext(ctx, "idem-1")
	engine, store := newTestEngine(t, "100")
	cat := seedCategory(store, "Food", "1000")
	item := seedItem(store, cat, "FOOD-1", "2", "5", 0)

	if _, err := engine.Restock(ctx, RestockRequest{InventoryId: item.ID, Quantity: 10}); err != nil {
		t.Fatalf("Restock: %v", err)
	}
	sold, err := engine.Sell(ctx, SellRequest{Items: []SellLine{{InventoryId: item.ID, Quantity: 4}}})
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if _, err := engine.AddExpense(ctx, AddExpenseRequest{Amount: dec("10"), ExpenseType: models.ExpenseTypeOperating}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, err := engine.DistributeProfit(ctx, DistributeProfitRequest{Amount: dec("5"), DistributedTo: "Alice"}); err != nil {
		t.Fatalf("DistributeProfit: %v", err)
	}
	if _, err := engine.ReverseSale(ctx, ReverseSaleRequest{SaleId: sold.SaleId, Reason: "void"}); err != nil {
		t.Fatalf("ReverseSale: %v", err)
	}

	entries, _ := store.ListLedgerEntries(ctx, models.LedgerFilter{Ascending: true})
	wantTypes := []models.LedgerReferenceType{
		models.LedgerReferenceRestock,
		models.LedgerReferenceSale,
		models.LedgerReferenceExpense,
		models.LedgerReferenceDistribution,
		models.LedgerReferenceSaleReversal,
	}
	if len(entries) != len(wantTypes) {
		t.Fatalf("expected %d ledger entries, got %d", len(wantTypes), len(entries))
	}
	for i, want := range wantTypes {
		if entries[i].ReferenceType != want {
			t.Fatalf("entry %d: expected %s, got %s", i, want, entries[i].ReferenceType)
		}
		if i > 0 && entries[i].ID <= entries[i-1].ID {
			t.Fatalf("ledger ids not increasing: %d then %d", entries[i-1].ID, entries[i].ID)
		}
	}

	events := store.OutboxEvents()
	wantEvents := []models.OutboxEventType{
		models.EventInventoryRestocked,
		models.EventSaleCreated,
		models.EventExpenseRecorded,
		models.EventProfitDistributed,
		models.EventSaleReversed,
	}
	if len(events) != len(wantEvents) {
		t.Fatalf("expected %d outbox events, got %d", len(wantEvents), len(events))
	}
	for i, want := range wantEvents {
		ev := events[i]
		if ev.EventType != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, ev.EventType)
		}
		if ev.PublishStatus != models.OutboxPublishStatusPending || ev.CorrelationId != "corr-42" {
			t.Fatalf("event %d: unexpected status/correlation %s/%s", i, ev.PublishStatus, ev.CorrelationId)
		}
		var payload ledgerEvent
		if err := utils.UnmarshalFromJSON([]byte(ev.Payload), &payload); err != nil {
			t.Fatalf("event %d: payload is not json: %v", i, err)
		}
		if payload.EventType != want || payload.IdempotencyKey != "idem-1" || payload.Source != "internal" {
			t.Fatalf("event %d: unexpected payload %+v", i, payload)
		}
	}
	if events[1].ReferenceId != sold.SaleId.String() {
		t.Fatalf("sale event must reference the sale, got %s", events[1].ReferenceId)
	}
}

func TestEngine_StoreFailureIsStoreError(t *testing.T) {
	ctx := context.Background()
	var hooked []Operation
	engine, store := newTestEngine(t, "100", WithCommitHook(func(ctx context.Context, op Operation) {
		hooked = append(hooked, op)
	}))
	before := takeSnapshot(t, store)

	store.FailNextCommit(errors.New("connection reset by peer"))
	_, err := engine.DistributeProfit(ctx, DistributeProfitRequest{Amount: dec("10"), DistributedTo: "Alice"})
	if !utils.IsKind(err, utils.KindStore) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection reset by peer") {
		t.Fatalf("expected cause in message, got %q", err.Error())
	}
	assertUnchanged(t, before, takeSnapshot(t, store))
	if len(hooked) != 0 {
		t.Fatalf("commit hooks must not run on failure, got %v", hooked)
	}

	if _, err := engine.DistributeProfit(ctx, DistributeProfitRequest{Amount: dec("10"), DistributedTo: "Alice"}); err != nil {
		t.Fatalf("DistributeProfit: %v", err)
	}
	if len(hooked) != 1 || hooked[0] != OpDistributeProfit {
		t.Fatalf("expected one DistributeProfit hook call, got %v", hooked)
	}
}

func TestEngine_EnsureCapitalStructure(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, "25")

	cs, err := engine.EnsureCapitalStructure(ctx, dec("5000"))
	if err != nil {
		t.Fatalf("EnsureCapitalStructure: %v", err)
	}
	if !cs.OwnerEquity.Equal(dec("1000")) || !cs.RetainedEarnings.Equal(dec("25")) {
		t.Fatalf("existing capital structure must be kept, got %+v", cs)
	}
	if _, err := engine.EnsureCapitalStructure(ctx, dec("-1")); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected ValidationError for negative equity, got %v", err)
	}
}

func TestEngine_ConcurrentSellsNeverOversell(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "0")
	cat := seedCategory(store, "Food", "0")
	item := seedItem(store, cat, "FOOD-1", "1", "3", 10)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Sell(ctx, SellRequest{Items: []SellLine{{InventoryId: item.ID, Quantity: 1}}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, utils.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 || rejected != workers-10 {
		t.Fatalf("expected 10 sales and %d rejections, got %d and %d", workers-10, succeeded, rejected)
	}
	snap := takeSnapshot(t, store)
	if snap.stock[item.ID] != 0 {
		t.Fatalf("expected stock 0, got %d", snap.stock[item.ID])
	}
	if !snap.capital.RetainedEarnings.Equal(dec("20")) || !snap.retained[cat.ID].Equal(dec("20")) {
		t.Fatalf("expected retained earnings 20, got capital=%s category=%s", snap.capital.RetainedEarnings, snap.retained[cat.ID])
	}
	if snap.ledger != 10 || snap.sales != 10 {
		t.Fatalf("expected 10 ledger entries and sales, got %d and %d", snap.ledger, snap.sales)
	}
}

func TestEngine_ConcurrentDistributionsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "100")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.DistributeProfit(ctx, DistributeProfitRequest{Amount: dec("30"), DistributedTo: "Partner"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if !errors.Is(err, utils.ErrInsufficientRetainedEarnings) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 3 {
		t.Fatalf("expected 3 distributions to succeed, got %d", ok)
	}
	snap := takeSnapshot(t, store)
	if !snap.capital.RetainedEarnings.Equal(dec("10")) {
		t.Fatalf("expected retained earnings 10, got %s", snap.capital.RetainedEarnings)
	}
	if snap.capital.Version != 3 {
		t.Fatalf("expected capital version 3, got %d", snap.capital.Version)
	}
}

func TestMergeSellLines(t *testing.T) {
	x, y := uuid.New(), uuid.New()

	merged, err := mergeSellLines([]SellLine{
		{InventoryId: x, Quantity: 1},
		{InventoryId: y, Quantity: 2},
		{InventoryId: x, Quantity: 4},
	})
	if err != nil {
		t.Fatalf("mergeSellLines: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(merged))
	}
	if compareIds(merged[0].InventoryId, merged[1].InventoryId) >= 0 {
		t.Fatalf("lines not ordered by id")
	}
	for _, l := range merged {
		want := 2
		if l.InventoryId == x {
			want = 5
		}
		if l.Quantity != want {
			t.Fatalf("item %s: expected %d, got %d", l.InventoryId, want, l.Quantity)
		}
	}
}

func TestMergeSellLines_BoundsMergedQuantity(t *testing.T) {
	x := uuid.New()
	tests := []struct {
		name  string
		lines []SellLine
	}{
		{"sum above limit", []SellLine{{InventoryId: x, Quantity: models.MaxQuantity}, {InventoryId: x, Quantity: 1}}},
		{"sum would wrap", []SellLine{{InventoryId: x, Quantity: math.MaxInt}, {InventoryId: x, Quantity: math.MaxInt}}},
		{"negative line", []SellLine{{InventoryId: x, Quantity: 3}, {InventoryId: x, Quantity: -2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := mergeSellLines(tt.lines)
			if !utils.IsKind(err, utils.KindValidation) {
				t.Fatalf("expected ValidationError, got %v (%+v)", err, merged)
			}
		})
	}

	merged, err := mergeSellLines([]SellLine{
		{InventoryId: x, Quantity: models.MaxQuantity - 1},
		{InventoryId: x, Quantity: 1},
	})
	if err != nil || len(merged) != 1 || merged[0].Quantity != models.MaxQuantity {
		t.Fatalf("expected one line at the limit, got %+v, %v", merged, err)
	}
}
