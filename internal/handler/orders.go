package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/service"
	"github.com/silai-boutique/api/internal/ws"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	UpdateStatus(ctx context.Context, req service.UpdateStatusRequest) (*service.StatusChange, error)
	UpdateOrder(ctx context.Context, businessID, id uuid.UUID, req service.UpdateOrderRequest) (database.Order, error)
	DeleteOrder(ctx context.Context, businessID, id uuid.UUID) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListOrderStatusHistory(ctx context.Context, arg database.ListOrderStatusHistoryParams) ([]database.OrderStatusHistory, error)
}

// Publisher fans committed changes out to connected clients.
// Satisfied by *ws.Hub.
type Publisher interface {
	Publish(businessID uuid.UUID, eventType string, payload interface{})
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	events Publisher
	log    *zap.Logger
	now    func() time.Time
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, events Publisher, log *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, events: events, log: log, now: time.Now}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/paginated", h.Paginated)
	r.Get("/active", h.Active)
	r.Get("/due", h.Due)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/history", h.History)
	r.Put("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID    string      `json:"customer_id"`
	MeasurementID string      `json:"measurement_id"`
	Priority      string      `json:"priority"`
	TotalAmount   json.Number `json:"total_amount"`
	Notes         string      `json:"notes"`
}

type updateOrderRequest struct {
	TotalAmount   json.Number `json:"total_amount"`
	Notes         string      `json:"notes"`
	MeasurementID string      `json:"measurement_id"`
}

type updateStatusRequest struct {
	Status   string  `json:"status"`
	Notes    *string `json:"notes"`
	Override bool    `json:"override"`
}

type orderResponse struct {
	ID                    uuid.UUID  `json:"id"`
	CustomerID            uuid.UUID  `json:"customer_id"`
	CustomerName          string     `json:"customer_name,omitempty"`
	MeasurementID         *uuid.UUID `json:"measurement_id"`
	Status                string     `json:"status"`
	Priority              string     `json:"priority"`
	OrderDate             time.Time  `json:"order_date"`
	EstimatedDeliveryDate time.Time  `json:"estimated_delivery_date"`
	ActualDeliveryDate    *time.Time `json:"actual_delivery_date"`
	Notes                 *string    `json:"notes"`
	TotalAmount           string     `json:"total_amount"`
	PaidAmount            string     `json:"paid_amount"`
	RemainingAmount       string     `json:"remaining_amount"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type paginatedOrdersResponse struct {
	Orders      []orderResponse `json:"orders"`
	CurrentPage int             `json:"current_page"`
	PageSize    int             `json:"page_size"`
	TotalItems  int64           `json:"total_items"`
	TotalPages  int             `json:"total_pages"`
}

type statusHistoryResponse struct {
	ID         uuid.UUID  `json:"id"`
	FromStatus *string    `json:"from_status"`
	ToStatus   string     `json:"to_status"`
	Notes      *string    `json:"notes"`
	ChangedBy  *uuid.UUID `json:"changed_by"`
	ChangedAt  time.Time  `json:"changed_at"`
}

type statusChangedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
}

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:                    o.ID,
		CustomerID:            o.CustomerID,
		MeasurementID:         uuidPtr(o.MeasurementID),
		Status:                o.Status,
		Priority:              o.Priority,
		OrderDate:             o.OrderDate,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		ActualDeliveryDate:    timePtr(o.ActualDeliveryDate),
		Notes:                 textPtr(o.Notes),
		TotalAmount:           numericToString(o.TotalAmount),
		PaidAmount:            numericToString(o.PaidAmount),
		RemainingAmount:       service.RemainingAmount(o).StringFixed(2),
		IsActive:              o.IsActive,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func listRowToOrderResponse(row database.ListOrdersRow) orderResponse {
	resp := toOrderResponse(database.Order{
		ID:                    row.ID,
		BusinessID:            row.BusinessID,
		CustomerID:            row.CustomerID,
		MeasurementID:         row.MeasurementID,
		Status:                row.Status,
		Priority:              row.Priority,
		OrderDate:             row.OrderDate,
		EstimatedDeliveryDate: row.EstimatedDeliveryDate,
		ActualDeliveryDate:    row.ActualDeliveryDate,
		Notes:                 row.Notes,
		TotalAmount:           row.TotalAmount,
		PaidAmount:            row.PaidAmount,
		IsActive:              row.IsActive,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	})
	resp.CustomerName = row.CustomerName
	return resp
}

func listRowsToOrderResponses(rows []database.ListOrdersRow) []orderResponse {
	resp := make([]orderResponse, len(rows))
	for i, row := range rows {
		resp[i] = listRowToOrderResponse(row)
	}
	return resp
}

// --- Handlers ---

// Create opens a new order for an active customer.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	}
	measurementID, ok := optionalUUID(w, req.MeasurementID, "measurement_id")
	if !ok {
		return
	}
	total, err := parseDecimal(req.TotalAmount.String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid total_amount"})
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BusinessID:    claims.BusinessID,
		CreatedBy:     claims.UserID,
		CustomerID:    customerID,
		MeasurementID: measurementID,
		Priority:      req.Priority,
		TotalAmount:   total,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, h.log, "create order", err)
		return
	}

	resp := toOrderResponse(order)
	h.events.Publish(claims.BusinessID, ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List returns orders filtered by status, priority, customer and order date.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	params, ok := h.listFilter(w, r, claims.BusinessID)
	if !ok {
		return
	}
	params.Limit, params.Offset = parseLimitOffset(r)

	rows, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternalError(w, h.log, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, listRowsToOrderResponses(rows))
}

// Paginated returns one page of orders with page metadata.
func (h *OrderHandler) Paginated(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	params, ok := h.listFilter(w, r, claims.BusinessID)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(r, "pageSize", defaultLimit)
	if pageSize < 1 {
		pageSize = defaultLimit
	}
	if pageSize > maxLimit {
		pageSize = maxLimit
	}
	if page-1 > math.MaxInt32/pageSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page is out of range"})
		return
	}
	params.Limit = int32(pageSize)
	params.Offset = int32((page - 1) * pageSize)

	total, err := h.store.CountOrders(r.Context(), database.CountOrdersParams{
		BusinessID:       params.BusinessID,
		IncludeInactive:  params.IncludeInactive,
		Status:           params.Status,
		Priority:         params.Priority,
		CustomerID:       params.CustomerID,
		From:             params.From,
		To:               params.To,
		ExcludeDelivered: params.ExcludeDelivered,
		DueBefore:        params.DueBefore,
	})
	if err != nil {
		writeInternalError(w, h.log, "count orders", err)
		return
	}

	rows, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternalError(w, h.log, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, paginatedOrdersResponse{
		Orders:      listRowsToOrderResponses(rows),
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  total,
		TotalPages:  int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// Active returns active orders that are not yet delivered.
func (h *OrderHandler) Active(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		BusinessID:       claims.BusinessID,
		ExcludeDelivered: true,
		Limit:            maxLimit,
	})
	if err != nil {
		writeInternalError(w, h.log, "list active orders", err)
		return
	}
	writeJSON(w, http.StatusOK, listRowsToOrderResponses(rows))
}

// Due returns undelivered orders estimated within ?days= (default 7).
func (h *OrderHandler) Due(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	days := queryInt(r, "days", 7)
	if days < 0 || days > 365 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be between 0 and 365"})
		return
	}

	rows, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		BusinessID:       claims.BusinessID,
		ExcludeDelivered: true,
		DueBefore:        pgtype.Timestamptz{Time: h.now().AddDate(0, 0, days), Valid: true},
		Limit:            maxLimit,
	})
	if err != nil {
		writeInternalError(w, h.log, "list due orders", err)
		return
	}
	writeJSON(w, http.StatusOK, listRowsToOrderResponses(rows))
}

// Get returns one order.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: id, BusinessID: claims.BusinessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeInternalError(w, h.log, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Update replaces the total amount, notes and measurement of an order.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	total, err := parseDecimal(req.TotalAmount.String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid total_amount"})
		return
	}
	measurementID, ok := optionalUUID(w, req.MeasurementID, "measurement_id")
	if !ok {
		return
	}

	order, err := h.svc.UpdateOrder(r.Context(), claims.BusinessID, id, service.UpdateOrderRequest{
		TotalAmount:   total,
		Notes:         req.Notes,
		MeasurementID: measurementID,
	})
	if err != nil {
		writeServiceError(w, h.log, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Delete deactivates an order. Repeating it is a no-op.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	if _, err := h.svc.DeleteOrder(r.Context(), claims.BusinessID, id); err != nil {
		writeServiceError(w, h.log, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History lists the status changes of an order, oldest first.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	if _, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: id, BusinessID: claims.BusinessID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeInternalError(w, h.log, "get order", err)
		return
	}

	rows, err := h.store.ListOrderStatusHistory(r.Context(), database.ListOrderStatusHistoryParams{
		OrderID:    id,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		writeInternalError(w, h.log, "list order history", err)
		return
	}

	resp := make([]statusHistoryResponse, len(rows))
	for i, row := range rows {
		resp[i] = statusHistoryResponse{
			ID:         row.ID,
			FromStatus: textPtr(row.FromStatus),
			ToStatus:   row.ToStatus,
			Notes:      textPtr(row.Notes),
			ChangedBy:  uuidPtr(row.ChangedBy),
			ChangedAt:  row.ChangedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus moves an order through its lifecycle.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	change, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		BusinessID: claims.BusinessID,
		OrderID:    id,
		Status:     strings.TrimSpace(req.Status),
		Notes:      req.Notes,
		Override:   req.Override,
		Role:       claims.Role,
		ChangedBy:  claims.UserID,
	})
	if err != nil {
		writeServiceError(w, h.log, "update order status", err)
		return
	}

	h.events.Publish(claims.BusinessID, ws.EventOrderStatusChanged, statusChangedEvent{
		OrderID:    change.Order.ID,
		FromStatus: change.FromStatus,
		ToStatus:   change.Order.Status,
	})
	writeJSON(w, http.StatusOK, toOrderResponse(change.Order))
}

// --- Helpers ---

// listFilter builds ListOrdersParams from the query string, writing 400 on a
// malformed filter.
func (h *OrderHandler) listFilter(w http.ResponseWriter, r *http.Request, businessID uuid.UUID) (database.ListOrdersParams, bool) {
	q := r.URL.Query()
	params := database.ListOrdersParams{
		BusinessID:      businessID,
		IncludeInactive: queryBool(r, "include_inactive"),
	}

	if s := q.Get("status"); s != "" {
		if !enum.Contains(enum.OrderStatuses, s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return params, false
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := q.Get("priority"); s != "" {
		params.Priority = pgtype.Text{String: service.NormalizePriority(s), Valid: true}
	}
	if s := q.Get("customer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return params, false
		}
		params.CustomerID = pgtype.UUID{Bytes: id, Valid: true}
	}

	var err error
	if params.From, err = parseDateParam(q.Get("from"), false); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date"})
		return params, false
	}
	if params.To, err = parseDateParam(q.Get("to"), true); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date"})
		return params, false
	}
	return params, true
}

// optionalUUID parses s when non-empty, writing 400 on failure.
func optionalUUID(w http.ResponseWriter, s, field string) (*uuid.UUID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + field})
		return nil, false
	}
	return &id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
