package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/silai-boutique/api/internal/cache"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"go.uber.org/zap"
)

const (
	defaultChartMonths = 6
	maxChartMonths     = 24
	topCustomerCount   = 5
	customerTrendMonth = 6
)

// AnalyticsStore defines the database methods needed by analytics handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AnalyticsStore interface {
	GetDashboardTotals(ctx context.Context, arg database.GetDashboardTotalsParams) (database.GetDashboardTotalsRow, error)
	GetMonthlyRevenue(ctx context.Context, arg database.GetMonthlyRevenueParams) ([]database.GetMonthlyRevenueRow, error)
	CountCustomersByGender(ctx context.Context, businessID uuid.UUID) ([]database.CountCustomersByGenderRow, error)
	CountNewCustomersByMonth(ctx context.Context, arg database.CountNewCustomersByMonthParams) ([]database.CountNewCustomersByMonthRow, error)
	ListTopCustomers(ctx context.Context, arg database.ListTopCustomersParams) ([]database.ListTopCustomersRow, error)
	CountOrdersByStatus(ctx context.Context, businessID uuid.UUID) ([]database.CountOrdersByStatusRow, error)
	SumPaymentsByMethod(ctx context.Context, businessID uuid.UUID) ([]database.SumPaymentsByMethodRow, error)
}

// AnalyticsHandler handles business analytics endpoints.
type AnalyticsHandler struct {
	store AnalyticsStore
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler. Pass cache.Nop{} to
// disable dashboard caching.
func NewAnalyticsHandler(store AnalyticsStore, c cache.Cache, ttl time.Duration, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{store: store, cache: c, ttl: ttl, log: log, now: time.Now}
}

// RegisterRoutes registers analytics endpoints. Expected to be mounted at /analytics.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/revenue-chart", h.RevenueChart)
	r.Get("/customers", h.Customers)
	r.Get("/performance", h.Performance)
}

// --- Response types ---

type dashboardResponse struct {
	TotalRevenue      string  `json:"total_revenue"`
	MonthlyRevenue    string  `json:"monthly_revenue"`
	TotalOrders       int64   `json:"total_orders"`
	MonthlyOrders     int64   `json:"monthly_orders"`
	TotalCustomers    int64   `json:"total_customers"`
	NewCustomers      int64   `json:"new_customers"`
	AverageOrderValue string  `json:"average_order_value"`
	RevenueGrowth     float64 `json:"revenue_growth"`
}

type revenueChartResponse struct {
	Labels  []string `json:"labels"`
	Revenue []string `json:"revenue"`
	Orders  []int64  `json:"orders"`
}

type topCustomerResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	OrderCount int64     `json:"order_count"`
	TotalSpent string    `json:"total_spent"`
}

type customerAnalyticsResponse struct {
	CustomersByGender map[string]int64      `json:"customers_by_gender"`
	CustomersByMonth  []monthCount          `json:"customers_by_month"`
	TopCustomers      []topCustomerResponse `json:"top_customers"`
}

type monthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type performanceResponse struct {
	OrderCompletionRate    float64           `json:"order_completion_rate"`
	OrdersByStatus         map[string]int64  `json:"orders_by_status"`
	RevenueByPaymentMethod map[string]string `json:"revenue_by_payment_method"`
}

// --- Handlers ---

// Dashboard returns revenue, order and customer totals with this month's
// figures and month-over-month revenue growth.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	key := "analytics:dashboard:" + claims.BusinessID.String()
	var resp dashboardResponse
	hit, err := h.cache.GetJSON(r.Context(), key, &resp)
	if err != nil {
		h.log.Warn("dashboard cache read failed", zap.Error(err))
	}
	if hit {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	monthStart := startOfMonth(h.now())
	totals, err := h.store.GetDashboardTotals(r.Context(), database.GetDashboardTotalsParams{
		BusinessID:         claims.BusinessID,
		MonthStart:         monthStart,
		PreviousMonthStart: monthStart.AddDate(0, -1, 0),
	})
	if err != nil {
		writeInternalError(w, h.log, "dashboard totals", err)
		return
	}

	resp = dashboardResponse{
		TotalRevenue:      numericToString(totals.TotalRevenue),
		MonthlyRevenue:    numericToString(totals.MonthRevenue),
		TotalOrders:       totals.TotalOrders,
		MonthlyOrders:     totals.MonthOrders,
		TotalCustomers:    totals.TotalCustomers,
		NewCustomers:      totals.MonthCustomers,
		AverageOrderValue: numericToString(totals.AverageOrderValue),
		RevenueGrowth:     growthPercent(numericToDecimal(totals.MonthRevenue), numericToDecimal(totals.PreviousMonthRevenue)),
	}

	if err := h.cache.SetJSON(r.Context(), key, resp, h.ttl); err != nil {
		h.log.Warn("dashboard cache write failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RevenueChart returns monthly revenue and order counts for the last
// ?months= months (default 6), oldest first. Months without data are zero.
func (h *AnalyticsHandler) RevenueChart(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	months := queryInt(r, "months", defaultChartMonths)
	if months < 1 || months > maxChartMonths {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "months must be between 1 and 24"})
		return
	}

	first := startOfMonth(h.now()).AddDate(0, -(months - 1), 0)
	rows, err := h.store.GetMonthlyRevenue(r.Context(), database.GetMonthlyRevenueParams{
		BusinessID: claims.BusinessID,
		Since:      first,
	})
	if err != nil {
		writeInternalError(w, h.log, "monthly revenue", err)
		return
	}

	byMonth := lo.KeyBy(rows, func(row database.GetMonthlyRevenueRow) string {
		return row.Month.Format("2006-01")
	})

	resp := revenueChartResponse{
		Labels:  make([]string, 0, months),
		Revenue: make([]string, 0, months),
		Orders:  make([]int64, 0, months),
	}
	for i := 0; i < months; i++ {
		m := first.AddDate(0, i, 0)
		resp.Labels = append(resp.Labels, m.Format("Jan 2006"))
		row, ok := byMonth[m.Format("2006-01")]
		if !ok {
			resp.Revenue = append(resp.Revenue, decimal.Zero.StringFixed(2))
			resp.Orders = append(resp.Orders, 0)
			continue
		}
		resp.Revenue = append(resp.Revenue, numericToString(row.Revenue))
		resp.Orders = append(resp.Orders, row.OrderCount)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Customers returns gender distribution, new customers per month for the
// last six months and the top customers by spend.
func (h *AnalyticsHandler) Customers(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	byGender, err := h.store.CountCustomersByGender(r.Context(), claims.BusinessID)
	if err != nil {
		writeInternalError(w, h.log, "customers by gender", err)
		return
	}

	first := startOfMonth(h.now()).AddDate(0, -(customerTrendMonth - 1), 0)
	newByMonth, err := h.store.CountNewCustomersByMonth(r.Context(), database.CountNewCustomersByMonthParams{
		BusinessID: claims.BusinessID,
		Since:      first,
	})
	if err != nil {
		writeInternalError(w, h.log, "new customers by month", err)
		return
	}

	top, err := h.store.ListTopCustomers(r.Context(), database.ListTopCustomersParams{
		BusinessID: claims.BusinessID,
		Limit:      topCustomerCount,
	})
	if err != nil {
		writeInternalError(w, h.log, "top customers", err)
		return
	}

	counts := lo.SliceToMap(newByMonth, func(row database.CountNewCustomersByMonthRow) (string, int64) {
		return row.Month.Format("2006-01"), row.Count
	})
	trend := make([]monthCount, customerTrendMonth)
	for i := range trend {
		m := first.AddDate(0, i, 0)
		trend[i] = monthCount{Month: m.Format("Jan 2006"), Count: counts[m.Format("2006-01")]}
	}

	writeJSON(w, http.StatusOK, customerAnalyticsResponse{
		CustomersByGender: lo.SliceToMap(byGender, func(row database.CountCustomersByGenderRow) (string, int64) {
			if row.Gender == "" {
				return "Unknown", row.Count
			}
			return row.Gender, row.Count
		}),
		CustomersByMonth: trend,
		TopCustomers: lo.Map(top, func(row database.ListTopCustomersRow, _ int) topCustomerResponse {
			return topCustomerResponse{
				ID:         row.ID,
				Name:       row.Name,
				OrderCount: row.OrderCount,
				TotalSpent: numericToString(row.TotalSpent),
			}
		}),
	})
}

// Performance returns the delivered share of orders, orders per status and
// completed revenue per payment method.
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	byStatus, err := h.store.CountOrdersByStatus(r.Context(), claims.BusinessID)
	if err != nil {
		writeInternalError(w, h.log, "orders by status", err)
		return
	}
	byMethod, err := h.store.SumPaymentsByMethod(r.Context(), claims.BusinessID)
	if err != nil {
		writeInternalError(w, h.log, "payments by method", err)
		return
	}

	statusCounts := lo.SliceToMap(byStatus, func(row database.CountOrdersByStatusRow) (string, int64) {
		return row.Status, row.Count
	})
	total := lo.SumBy(byStatus, func(row database.CountOrdersByStatusRow) int64 { return row.Count })

	var completion float64
	if total > 0 {
		completion = float64(statusCounts[enum.OrderStatusDelivered]) / float64(total) * 100
	}

	writeJSON(w, http.StatusOK, performanceResponse{
		OrderCompletionRate: completion,
		OrdersByStatus:      statusCounts,
		RevenueByPaymentMethod: lo.SliceToMap(byMethod, func(row database.SumPaymentsByMethodRow) (string, string) {
			return row.PaymentMethod, numericToString(row.TotalAmount)
		}),
	})
}

// --- Helpers ---

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// growthPercent is the change from previous to current in percent; zero
// when there is no previous figure.
func growthPercent(current, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	g, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return g
}
