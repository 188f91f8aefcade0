package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/mmdatafocus/retail_ledger_backend/workflow"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// openIntegrationStore starts a throwaway MySQL container, migrates it and
// returns an engine over the gorm store.
func openIntegrationStore(t *testing.T) (*workflow.Engine, *models.GormStore) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "retail_ledger_test")

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	store := models.NewGormStore(db)
	engine := workflow.NewEngine(store)
	if _, err := engine.EnsureCapitalStructure(context.Background(), dec("1000")); err != nil {
		t.Fatalf("EnsureCapitalStructure: %v", err)
	}
	return engine, store
}

func TestGormStore_SellReverseRoundTrip(t *testing.T) {
	engine, store := openIntegrationStore(t)
	ctx := context.Background()

	category, err := engine.CreateCategory(ctx, workflow.CreateCategoryRequest{Name: "Snacks", AllocatedCapital: dec("500")})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	item, err := engine.AddInventoryItem(ctx, workflow.AddInventoryItemRequest{
		Sku:          "CHIPS-1",
		Name:         "Chips",
		CostPrice:    dec("10"),
		SellingPrice: dec("15"),
		MinimumStock: 2,
		CategoryId:   category.ID,
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if _, err := engine.Restock(ctx, workflow.RestockRequest{InventoryId: item.ID, Quantity: 10}); err != nil {
		t.Fatalf("Restock: %v", err)
	}

	sold, err := engine.Sell(ctx, workflow.SellRequest{Items: []workflow.SellLine{{InventoryId: item.ID, Quantity: 4}}})
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if !sold.Sale.TotalRevenue.Equal(dec("60")) || !sold.Sale.GrossProfit.Equal(dec("20")) {
		t.Fatalf("unexpected totals revenue=%s profit=%s", sold.Sale.TotalRevenue, sold.Sale.GrossProfit)
	}
	cs, err := store.GetCapitalStructure(ctx)
	if err != nil {
		t.Fatalf("GetCapitalStructure: %v", err)
	}
	if !cs.RetainedEarnings.Equal(dec("20")) {
		t.Fatalf("expected retained earnings 20, got %s", cs.RetainedEarnings)
	}

	if _, err := engine.ReverseSale(ctx, workflow.ReverseSaleRequest{SaleId: sold.SaleId, Reason: "returned"}); err != nil {
		t.Fatalf("ReverseSale: %v", err)
	}
	_, err = engine.ReverseSale(ctx, workflow.ReverseSaleRequest{SaleId: sold.SaleId, Reason: "again"})
	if !errors.Is(err, utils.ErrAlreadyReversed) {
		t.Fatalf("expected AlreadyReversed, got %v", err)
	}

	items, err := store.ListInventoryItems(ctx, models.InventoryFilter{})
	if err != nil || len(items) != 1 {
		t.Fatalf("ListInventoryItems: %v (%d rows)", err, len(items))
	}
	if items[0].CurrentStock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", items[0].CurrentStock)
	}
	cs, _ = store.GetCapitalStructure(ctx)
	if !cs.RetainedEarnings.IsZero() {
		t.Fatalf("expected retained earnings back to 0, got %s", cs.RetainedEarnings)
	}

	archive, err := store.ListSalesArchive(ctx)
	if err != nil || len(archive) != 1 {
		t.Fatalf("ListSalesArchive: %v (%d rows)", err, len(archive))
	}
	entries, err := store.ListLedgerEntries(ctx, models.LedgerFilter{ReferenceId: sold.SaleId.String()})
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected sale and reversal entries, got %d", len(entries))
	}
}

func TestGormStore_DuplicateSkuIsConflict(t *testing.T) {
	engine, _ := openIntegrationStore(t)
	ctx := context.Background()
	category, err := engine.CreateCategory(ctx, workflow.CreateCategoryRequest{Name: "Drinks", AllocatedCapital: dec("0")})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	req := workflow.AddInventoryItemRequest{Sku: "WATER", Name: "Water", CostPrice: dec("1"), SellingPrice: dec("2"), CategoryId: category.ID}
	if _, err := engine.AddInventoryItem(ctx, req); err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if _, err := engine.AddInventoryItem(ctx, req); !utils.IsKind(err, utils.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := engine.CreateCategory(ctx, workflow.CreateCategoryRequest{Name: "Drinks"}); !utils.IsKind(err, utils.KindConflict) {
		t.Fatalf("expected conflict for duplicate category, got %v", err)
	}
}

func TestGormStore_ConcurrentSellsNeverOversell(t *testing.T) {
	engine, store := openIntegrationStore(t)
	ctx := context.Background()
	category, err := engine.CreateCategory(ctx, workflow.CreateCategoryRequest{Name: "Bakery", AllocatedCapital: dec("100")})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	item, err := engine.AddInventoryItem(ctx, workflow.AddInventoryItemRequest{
		Sku: "BREAD", Name: "Bread", CostPrice: dec("2"), SellingPrice: dec("3"), CategoryId: category.ID,
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if _, err := engine.Restock(ctx, workflow.RestockRequest{InventoryId: item.ID, Quantity: 5}); err != nil {
		t.Fatalf("Restock: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Sell(ctx, workflow.SellRequest{Items: []workflow.SellLine{{InventoryId: item.ID, Quantity: 1}}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, utils.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected 5 sales, got %d", succeeded)
	}
	items, _ := store.ListInventoryItems(ctx, models.InventoryFilter{})
	if items[0].CurrentStock != 0 {
		t.Fatalf("expected stock 0, got %d", items[0].CurrentStock)
	}
	cs, _ := store.GetCapitalStructure(ctx)
	if !cs.RetainedEarnings.Equal(dec("5")) {
		t.Fatalf("expected retained earnings 5, got %s", cs.RetainedEarnings)
	}
}

func TestGormStore_OutboxClaimAndReplay(t *testing.T) {
	engine, store := openIntegrationStore(t)
	ctx := context.Background()
	if _, err := engine.CreateCategory(ctx, workflow.CreateCategoryRequest{Name: "Tools", AllocatedCapital: dec("0")}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	claimed, err := store.ClaimOutboxEvents(ctx, models.OutboxClaim{
		WorkerId:    "test-" + uuid.NewString(),
		Limit:       10,
		Now:         now,
		StaleBefore: now.Add(-time.Minute),
		MaxAttempts: 3,
	})
	if err != nil {
		t.Fatalf("ClaimOutboxEvents: %v", err)
	}
	if len(claimed) != 1 || claimed[0].PublishStatus != models.OutboxPublishStatusProcessing {
		t.Fatalf("expected one PROCESSING event, got %+v", claimed)
	}
	if err := store.MarkOutboxFailed(ctx, claimed[0].ID, "broker down", nil, true); err != nil {
		t.Fatalf("MarkOutboxFailed: %v", err)
	}

	dead, err := store.ListOutboxEvents(ctx, models.OutboxFilter{Status: models.OutboxPublishStatusDead})
	if err != nil || len(dead) != 1 {
		t.Fatalf("expected one DEAD event: %v (%d rows)", err, len(dead))
	}
	replayed, err := store.ReplayOutboxEvent(ctx, dead[0].ID, now)
	if err != nil {
		t.Fatalf("ReplayOutboxEvent: %v", err)
	}
	if replayed.PublishStatus != models.OutboxPublishStatusPending || replayed.PublishAttempts != 0 {
		t.Fatalf("unexpected replayed row %+v", replayed)
	}
	if err := store.MarkOutboxSent(ctx, replayed.ID, "msg-1", now); err != nil {
		t.Fatalf("MarkOutboxSent: %v", err)
	}
	if _, err := store.ReplayOutboxEvent(ctx, replayed.ID, now); !utils.IsKind(err, utils.KindConflict) {
		t.Fatalf("expected conflict replaying a SENT event, got %v", err)
	}
}

func TestGormStore_LedgerIsAppendOnly(t *testing.T) {
	engine, _ := openIntegrationStore(t)
	ctx := context.Background()
	if _, err := engine.DistributeProfit(ctx, workflow.DistributeProfitRequest{Amount: dec("1"), DistributedTo: "Owner"}); !errors.Is(err, utils.ErrInsufficientRetainedEarnings) {
		t.Fatalf("expected InsufficientRetainedEarnings on a fresh ledger, got %v", err)
	}
	if _, err := engine.AddExpense(ctx, workflow.AddExpenseRequest{Amount: dec("1"), ExpenseType: models.ExpenseTypeOperating, Note: "x"}); err == nil {
		t.Fatalf("expected operating expense to fail without retained earnings")
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("1 = 1").Update("amount", 0).Error
	if !errors.Is(err, config.ErrAppendOnlyTable) {
		t.Fatalf("expected append-only guard to reject the update, got %v", err)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retail-ledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=retail_ledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
