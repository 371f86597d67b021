package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/silai-boutique/api/internal/database"
	"go.uber.org/zap"
)

const searchLimit = 10

// SearchStore defines the database methods needed by global search.
// Satisfied by *database.Queries.
type SearchStore interface {
	SearchCustomers(ctx context.Context, arg database.SearchCustomersParams) ([]database.Customer, error)
	SearchOrders(ctx context.Context, arg database.SearchOrdersParams) ([]database.SearchOrdersRow, error)
	SearchPayments(ctx context.Context, arg database.SearchPaymentsParams) ([]database.Payment, error)
}

// SearchHandler searches customers, orders and payments at once.
type SearchHandler struct {
	store SearchStore
	log   *zap.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(store SearchStore, log *zap.Logger) *SearchHandler {
	return &SearchHandler{store: store, log: log}
}

type orderSearchResult struct {
	ID           uuid.UUID `json:"id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	OrderDate    time.Time `json:"order_date"`
	TotalAmount  string    `json:"total_amount"`
	PaidAmount   string    `json:"paid_amount"`
}

type searchResponse struct {
	Query     string              `json:"query"`
	Customers []customerResponse  `json:"customers"`
	Orders    []orderSearchResult `json:"orders"`
	Payments  []paymentResponse   `json:"payments"`
	Total     int                 `json:"total"`
}

// Search handles GET /search?q=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q must be at least 2 characters"})
		return
	}

	customers, err := h.store.SearchCustomers(r.Context(), database.SearchCustomersParams{
		BusinessID: claims.BusinessID, Query: q, Limit: searchLimit,
	})
	if err != nil {
		writeInternalError(w, h.log, "search customers", err)
		return
	}
	orders, err := h.store.SearchOrders(r.Context(), database.SearchOrdersParams{
		BusinessID: claims.BusinessID, Query: q, Limit: searchLimit,
	})
	if err != nil {
		writeInternalError(w, h.log, "search orders", err)
		return
	}
	payments, err := h.store.SearchPayments(r.Context(), database.SearchPaymentsParams{
		BusinessID: claims.BusinessID, Query: q, Limit: searchLimit,
	})
	if err != nil {
		writeInternalError(w, h.log, "search payments", err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query: q,
		Customers: lo.Map(customers, func(c database.Customer, _ int) customerResponse {
			return toCustomerResponse(c)
		}),
		Orders: lo.Map(orders, func(o database.SearchOrdersRow, _ int) orderSearchResult {
			return orderSearchResult{
				ID:           o.ID,
				CustomerID:   o.CustomerID,
				CustomerName: o.CustomerName,
				Status:       o.Status,
				Priority:     o.Priority,
				OrderDate:    o.OrderDate,
				TotalAmount:  numericToString(o.TotalAmount),
				PaidAmount:   numericToString(o.PaidAmount),
			}
		}),
		Payments: toPaymentResponses(payments),
		Total:    len(customers) + len(orders) + len(payments),
	})
}
