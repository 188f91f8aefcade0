package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DashboardCacheKey      = "Dashboard:report"
	DashboardGenerationKey = "Dashboard:generation"
	RecentSalesLimit       = 10
)

type DashboardTotals struct {
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	TotalAllocatedCapital decimal.Decimal `json:"total_allocated_capital"`
	TotalStockValue       decimal.Decimal `json:"total_stock_value"`
	ROI                   decimal.Decimal `json:"roi"`
}

type DashboardReport struct {
	CapitalStructure models.CapitalStructure `json:"capital_structure"`
	Categories       []*models.Category      `json:"categories"`
	LowStockItems    []*models.InventoryItem `json:"low_stock_items"`
	RecentSales      []*models.Sale          `json:"recent_sales"`
	Totals           DashboardTotals         `json:"totals"`
	GeneratedAt      time.Time               `json:"generated_at"`
}

// ReturnOnInvestment is retained earnings as a percentage of allocated
// capital, rounded to 2 places. It is zero when nothing is allocated.
func ReturnOnInvestment(retainedEarnings, allocated decimal.Decimal) decimal.Decimal {
	if !allocated.IsPositive() {
		return decimal.Zero
	}
	return retainedEarnings.Div(allocated).Mul(decimal.NewFromInt(100)).Round(2)
}

// BuildDashboard reads a snapshot straight from the store.
func BuildDashboard(ctx context.Context, reader models.LedgerReader) (*DashboardReport, error) {
	started := time.Now()
	defer logSlowReport(ctx, "dashboard", started, nil)

	report := &DashboardReport{
		Totals: DashboardTotals{
			TotalRevenue:          decimal.Zero,
			TotalAllocatedCapital: decimal.Zero,
			TotalStockValue:       decimal.Zero,
			ROI:                   decimal.Zero,
		},
		GeneratedAt: time.Now().UTC(),
	}

	cs, err := reader.GetCapitalStructure(ctx)
	switch {
	case err == nil:
		report.CapitalStructure = *cs
	case utils.IsKind(err, utils.KindNotFound):
		report.CapitalStructure = models.CapitalStructure{
			ID:               models.CapitalStructureId,
			TotalAssets:      decimal.Zero,
			RetainedEarnings: decimal.Zero,
			OwnerEquity:      decimal.Zero,
			TotalLiabilities: decimal.Zero,
		}
	default:
		return nil, err
	}

	categories, err := reader.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	report.Categories = categories
	for _, c := range categories {
		report.Totals.TotalRevenue = report.Totals.TotalRevenue.Add(c.Revenue)
		report.Totals.TotalAllocatedCapital = report.Totals.TotalAllocatedCapital.Add(c.AllocatedCapital)
	}

	items, err := reader.ListInventoryItems(ctx, models.InventoryFilter{})
	if err != nil {
		return nil, err
	}
	report.LowStockItems = make([]*models.InventoryItem, 0)
	for _, item := range items {
		report.Totals.TotalStockValue = report.Totals.TotalStockValue.Add(item.StockValue())
		if item.IsLowStock() {
			report.LowStockItems = append(report.LowStockItems, item)
		}
	}

	sales, err := reader.ListSales(ctx, models.SaleFilter{WithItems: true, Limit: RecentSalesLimit})
	if err != nil {
		return nil, err
	}
	report.RecentSales = sales

	report.Totals.ROI = ReturnOnInvestment(report.CapitalStructure.RetainedEarnings, report.Totals.TotalAllocatedCapital)
	return report, nil
}

// cachedDashboard tags a cached report with the cache generation that was
// current before the report was read.
type cachedDashboard struct {
	Generation string           `json:"generation"`
	Report     *DashboardReport `json:"report"`
}

// DashboardService serves the dashboard from the cache when one is set.
// Cache failures are logged and fall through to the store.
//
// Invalidate starts a new generation. A cached report is served only while
// its generation is current, so a report read before a commit but written to
// the cache after that commit's Invalidate is never served.
type DashboardService struct {
	Reader models.LedgerReader
	Cache  Cache
	TTL    time.Duration
	Logger *logrus.Logger
}

func NewDashboardService(reader models.LedgerReader, cache Cache, ttl time.Duration, logger *logrus.Logger) *DashboardService {
	return &DashboardService{Reader: reader, Cache: cache, TTL: ttl, Logger: logger}
}

// generation returns the current cache generation, starting one if none exists.
func (s *DashboardService) generation(ctx context.Context) (string, error) {
	var gen string
	ok, err := s.Cache.Get(ctx, DashboardGenerationKey, &gen)
	if err != nil {
		return "", err
	}
	if ok && gen != "" {
		return gen, nil
	}
	gen = uuid.NewString()
	if err := s.Cache.Set(ctx, DashboardGenerationKey, gen, 0); err != nil {
		return "", err
	}
	return gen, nil
}

func (s *DashboardService) Report(ctx context.Context) (*DashboardReport, error) {
	var gen string
	if s.Cache != nil {
		var err error
		if gen, err = s.generation(ctx); err != nil {
			config.LogError(s.Logger, "reports", "Dashboard", "cache generation", DashboardGenerationKey, err)
		} else {
			var cached cachedDashboard
			ok, err := s.Cache.Get(ctx, DashboardCacheKey, &cached)
			if err != nil {
				config.LogError(s.Logger, "reports", "Dashboard", "cache get", DashboardCacheKey, err)
			} else if ok && cached.Generation == gen && cached.Report != nil {
				return cached.Report, nil
			}
		}
	}

	report, err := BuildDashboard(ctx, s.Reader)
	if err != nil {
		return nil, err
	}
	if gen != "" {
		entry := cachedDashboard{Generation: gen, Report: report}
		if err := s.Cache.Set(ctx, DashboardCacheKey, entry, s.TTL); err != nil {
			config.LogError(s.Logger, "reports", "Dashboard", "cache set", DashboardCacheKey, err)
		}
	}
	return report, nil
}

// Invalidate starts a new cache generation and drops the cached report. It is
// registered as a commit hook.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Set(ctx, DashboardGenerationKey, uuid.NewString(), 0); err != nil {
		config.LogError(s.Logger, "reports", "Dashboard", "cache generation", DashboardGenerationKey, err)
	}
	if err := s.Cache.Delete(ctx, DashboardCacheKey); err != nil {
		config.LogError(s.Logger, "reports", "Dashboard", "cache delete", DashboardCacheKey, err)
	}
}
