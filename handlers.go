package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/models/reports"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/mmdatafocus/retail_ledger_backend/workflow"
	"github.com/sirupsen/logrus"
)

const maxListLimit = 500

// API binds the ledger engine and its read side to gin handlers.
type API struct {
	Engine    *workflow.Engine
	Dashboard *reports.DashboardService
	Logger    *logrus.Logger
}

func NewAPI(engine *workflow.Engine, dashboard *reports.DashboardService, logger *logrus.Logger) *API {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &API{Engine: engine, Dashboard: dashboard, Logger: logger}
}

func (a *API) store() models.LedgerStore {
	return a.Engine.Store()
}

func errorStatus(err error) int {
	switch utils.KindOf(err) {
	case utils.KindValidation, utils.KindBusinessRule:
		return http.StatusBadRequest
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (a *API) abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	body := gin.H{"error": err.Error(), "code": utils.KindOf(err)}
	if utils.IsKind(err, utils.KindBusinessRule) {
		body["reason"] = utils.CodeOf(err)
	}
	if status >= http.StatusInternalServerError {
		// customErrorLogger reports the cause.
		_ = c.Error(err)
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}

func (a *API) bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		a.abortWithError(c, utils.NewValidationError("invalid request: %s", err.Error()))
		return false
	}
	return true
}

func queryLimit(c *gin.Context, def int) (int, error) {
	v := strings.TrimSpace(c.Query("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, utils.NewValidationError("limit must be a positive integer")
	}
	return utils.Clamp(n, 1, maxListLimit), nil
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, utils.NewValidationError("%s must be a uuid", name)
	}
	return &id, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, utils.NewValidationError("%s must be true or false", name)
	}
	return &b, nil
}

func (a *API) sell(c *gin.Context) {
	var req workflow.SellRequest
	if !a.bindJSON(c, &req) {
		return
	}
	res, err := a.Engine.Sell(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sale_id": res.SaleId, "sale": res.Sale})
}

func (a *API) restock(c *gin.Context) {
	var req workflow.RestockRequest
	if !a.bindJSON(c, &req) {
		return
	}
	res, err := a.Engine.Restock(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": res.Item, "expense": res.Expense})
}

func (a *API) addExpense(c *gin.Context) {
	var req workflow.AddExpenseRequest
	if !a.bindJSON(c, &req) {
		return
	}
	expense, err := a.Engine.AddExpense(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "expense": expense})
}

func (a *API) distributeProfit(c *gin.Context) {
	var req workflow.DistributeProfitRequest
	if !a.bindJSON(c, &req) {
		return
	}
	distribution, err := a.Engine.DistributeProfit(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "distribution": distribution})
}

func (a *API) reverseSale(c *gin.Context) {
	var req workflow.ReverseSaleRequest
	if !a.bindJSON(c, &req) {
		return
	}
	res, err := a.Engine.ReverseSale(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sale": res.Sale, "archive": res.Archive})
}

func (a *API) addInventoryItem(c *gin.Context) {
	var req workflow.AddInventoryItemRequest
	if !a.bindJSON(c, &req) {
		return
	}
	item, err := a.Engine.AddInventoryItem(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

func (a *API) createCategory(c *gin.Context) {
	var req workflow.CreateCategoryRequest
	if !a.bindJSON(c, &req) {
		return
	}
	category, err := a.Engine.CreateCategory(c.Request.Context(), req)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "category": category})
}

func (a *API) dashboardReport(c *gin.Context) {
	report, err := a.Dashboard.Report(c.Request.Context())
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "dashboard report"))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) capitalStructure(c *gin.Context) {
	cs, err := a.store().GetCapitalStructure(c.Request.Context())
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "capital structure"))
		return
	}
	c.JSON(http.StatusOK, cs)
}

func (a *API) listCategories(c *gin.Context) {
	categories, err := a.store().ListCategories(c.Request.Context())
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list categories"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (a *API) listInventory(c *gin.Context) {
	var filter models.InventoryFilter
	var err error
	if filter.CategoryId, err = queryUUID(c, "category_id"); err != nil {
		a.abortWithError(c, err)
		return
	}
	lowStock, err := queryBool(c, "low_stock")
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	filter.LowStockOnly = utils.DereferencePtr(lowStock)
	items, err := a.store().ListInventoryItems(c.Request.Context(), filter)
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list inventory"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (a *API) listSales(c *gin.Context) {
	filter := models.SaleFilter{WithItems: true}
	var err error
	if filter.Reversed, err = queryBool(c, "reversed"); err != nil {
		a.abortWithError(c, err)
		return
	}
	if filter.Limit, err = queryLimit(c, 100); err != nil {
		a.abortWithError(c, err)
		return
	}
	sales, err := a.store().ListSales(c.Request.Context(), filter)
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list sales"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func (a *API) getSale(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		a.abortWithError(c, utils.NewValidationError("sale id must be a uuid"))
		return
	}
	sale, err := a.store().GetSale(c.Request.Context(), id)
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "get sale"))
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (a *API) listSalesArchive(c *gin.Context) {
	archive, err := a.store().ListSalesArchive(c.Request.Context())
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list sales archive"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales_archive": archive})
}

func (a *API) listExpenses(c *gin.Context) {
	var filter models.ExpenseFilter
	var err error
	if v := strings.TrimSpace(c.Query("expense_type")); v != "" {
		t := models.ExpenseType(v)
		if !t.IsValid() {
			a.abortWithError(c, utils.NewValidationError("expense_type must be one of [operating stock_purchase]"))
			return
		}
		filter.ExpenseType = &t
	}
	if filter.CategoryId, err = queryUUID(c, "category_id"); err != nil {
		a.abortWithError(c, err)
		return
	}
	if filter.Limit, err = queryLimit(c, 100); err != nil {
		a.abortWithError(c, err)
		return
	}
	expenses, err := a.store().ListExpenses(c.Request.Context(), filter)
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list expenses"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (a *API) listDistributions(c *gin.Context) {
	distributions, err := a.store().ListDistributions(c.Request.Context())
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list distributions"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"distributions": distributions})
}

func (a *API) ledgerFilter(c *gin.Context) (models.LedgerFilter, error) {
	var filter models.LedgerFilter
	if v := strings.TrimSpace(c.Query("reference_type")); v != "" {
		t := models.LedgerReferenceType(v)
		if !t.IsValid() {
			return filter, utils.NewValidationError("unknown reference_type %q", v)
		}
		filter.ReferenceType = &t
	}
	filter.ReferenceId = strings.TrimSpace(c.Query("reference_id"))
	filter.Ascending = strings.EqualFold(c.Query("order"), "asc")
	var err error
	filter.Limit, err = queryLimit(c, 0)
	return filter, err
}

func (a *API) listLedger(c *gin.Context) {
	filter, err := a.ledgerFilter(c)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	entries, err := a.store().ListLedgerEntries(c.Request.Context(), filter)
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list ledger"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (a *API) trialBalance(c *gin.Context) {
	entries, err := a.store().ListLedgerEntries(c.Request.Context(), models.LedgerFilter{Ascending: true})
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "trial balance"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": reports.GetTrialBalance(entries)})
}

func (a *API) exportLedger(c *gin.Context) {
	// Build the workbook in memory so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := reports.ExportLedger(c.Request.Context(), a.store(), &buf); err != nil {
		a.abortWithError(c, utils.AsAppError(err, "export ledger"))
		return
	}
	filename := fmt.Sprintf("ledger-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, reports.LedgerContentType, buf.Bytes())
}

func (a *API) listOutbox(c *gin.Context) {
	filter := models.OutboxFilter{
		Status:      strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		ReferenceId: strings.TrimSpace(c.Query("reference_id")),
	}
	var err error
	if filter.Limit, err = queryLimit(c, 100); err != nil {
		a.abortWithError(c, err)
		return
	}
	events, err := a.store().ListOutboxEvents(c.Request.Context(), filter)
	if err != nil {
		a.abortWithError(c, utils.AsAppError(err, "list outbox"))
		return
	}
	statuses := make([]*models.OutboxStatus, 0, len(events))
	for _, ev := range events {
		statuses = append(statuses, models.NewOutboxStatus(ev))
	}
	c.JSON(http.StatusOK, gin.H{"events": statuses})
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

func (a *API) replayOutbox(c *gin.Context) {
	var req outboxReplayRequest
	if !a.bindJSON(c, &req) {
		return
	}
	if req.RecordId <= 0 {
		a.abortWithError(c, utils.NewValidationError("record_id is required"))
		return
	}
	rec, err := a.store().ReplayOutboxEvent(c.Request.Context(), req.RecordId, time.Now().UTC())
	if err != nil {
		var appErr *utils.AppError
		if !errors.As(err, &appErr) {
			config.LogError(a.Logger, "main", "replayOutbox", "ReplayOutboxEvent", req.RecordId, err)
		}
		a.abortWithError(c, utils.AsAppError(err, "replay outbox"))
		return
	}
	a.Logger.WithFields(logrus.Fields{
		"field":     "outbox",
		"record_id": rec.ID,
	}).Warn("outbox event replayed by operator")
	c.JSON(http.StatusOK, models.NewOutboxStatus(rec))
}
