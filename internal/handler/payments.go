package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/service"
	"github.com/silai-boutique/api/internal/ws"
	"go.uber.org/zap"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService; narrow interface for testability.
type PaymentServicer interface {
	CreatePayment(ctx context.Context, req service.CreatePaymentRequest) (*service.PaymentResult, error)
	UpdatePayment(ctx context.Context, businessID, id uuid.UUID, req service.UpdatePaymentRequest) (*service.PaymentResult, error)
	DeletePayment(ctx context.Context, businessID, id uuid.UUID) (*service.PaymentResult, error)
	CustomerSummary(ctx context.Context, businessID, customerID uuid.UUID) (*service.PaymentSummary, error)
}

// PaymentStore defines the database methods needed by payment read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PaymentStore interface {
	GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
	ListPaymentsByOrder(ctx context.Context, arg database.ListPaymentsByOrderParams) ([]database.Payment, error)
	ListPaymentsByCustomer(ctx context.Context, arg database.ListPaymentsByCustomerParams) ([]database.Payment, error)
}

// PaymentHandler handles payment ledger endpoints.
type PaymentHandler struct {
	svc    PaymentServicer
	store  PaymentStore
	events Publisher
	log    *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store PaymentStore, events Publisher, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store, events: events, log: log}
}

// RegisterRoutes registers payment endpoints. Expected to be mounted at /payments.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/order/{id}", h.ListByOrder)
	r.Get("/customer/{id}", h.ListByCustomer)
	r.Get("/customer/{id}/summary", h.Summary)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createPaymentRequest struct {
	OrderID       string      `json:"order_id"`
	CustomerID    string      `json:"customer_id"`
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
	TransactionID string      `json:"transaction_id"`
	PaymentDate   *time.Time  `json:"payment_date"`
	Notes         string      `json:"notes"`
}

type updatePaymentRequest struct {
	Amount        *json.Number `json:"amount"`
	PaymentMethod *string      `json:"payment_method"`
	Status        *string      `json:"status"`
	TransactionID *string      `json:"transaction_id"`
	Notes         *string      `json:"notes"`
}

type paymentResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	CustomerID    *uuid.UUID `json:"customer_id"`
	Amount        string     `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transaction_id"`
	PaymentDate   time.Time  `json:"payment_date"`
	Notes         *string    `json:"notes"`
	CreatedBy     *uuid.UUID `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

type paymentWithOrderResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
}

type paymentDeletedEvent struct {
	PaymentID uuid.UUID     `json:"payment_id"`
	Order     orderResponse `json:"order"`
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		CustomerID:    uuidPtr(p.CustomerID),
		Amount:        numericToString(p.Amount),
		PaymentMethod: p.PaymentMethod,
		Status:        p.Status,
		TransactionID: textPtr(p.TransactionID),
		PaymentDate:   p.PaymentDate,
		Notes:         textPtr(p.Notes),
		CreatedBy:     uuidPtr(p.CreatedBy),
		CreatedAt:     p.CreatedAt,
	}
}

func toPaymentResponses(payments []database.Payment) []paymentResponse {
	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	return resp
}

func toPaymentWithOrder(res *service.PaymentResult) paymentWithOrderResponse {
	return paymentWithOrderResponse{
		Payment: toPaymentResponse(res.Payment),
		Order:   toOrderResponse(res.Order),
	}
}

// --- Handlers ---

// Create records a payment against an order.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req createPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}
	customerID, ok := optionalUUID(w, req.CustomerID, "customer_id")
	if !ok {
		return
	}
	amount, err := parseDecimal(req.Amount.String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	res, err := h.svc.CreatePayment(r.Context(), service.CreatePaymentRequest{
		BusinessID:    claims.BusinessID,
		OrderID:       orderID,
		CustomerID:    customerID,
		Amount:        amount,
		Method:        req.PaymentMethod,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
		PaymentDate:   req.PaymentDate,
		CreatedBy:     claims.UserID,
	})
	if err != nil {
		writeServiceError(w, h.log, "create payment", err)
		return
	}

	resp := toPaymentWithOrder(res)
	h.events.Publish(claims.BusinessID, ws.EventPaymentRecorded, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List returns payments dated within ?from= and ?to=.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	from, err := parseDateParam(r.URL.Query().Get("from"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date"})
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date"})
		return
	}

	payments, err := h.store.ListPayments(r.Context(), database.ListPaymentsParams{
		BusinessID: claims.BusinessID,
		From:       from,
		To:         to,
	})
	if err != nil {
		writeInternalError(w, h.log, "list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponses(payments))
}

// Get returns one payment.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "payment")
	if !ok {
		return
	}

	p, err := h.store.GetPayment(r.Context(), database.GetPaymentParams{ID: id, BusinessID: claims.BusinessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment not found"})
			return
		}
		writeInternalError(w, h.log, "get payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

// Update applies the provided payment fields.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "payment")
	if !ok {
		return
	}

	var req updatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.UpdatePaymentRequest{
		Method:        req.PaymentMethod,
		Status:        req.Status,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
	}
	if req.Amount != nil {
		amount, err := parseDecimal(req.Amount.String())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
			return
		}
		in.Amount = &amount
	}

	res, err := h.svc.UpdatePayment(r.Context(), claims.BusinessID, id, in)
	if err != nil {
		writeServiceError(w, h.log, "update payment", err)
		return
	}

	resp := toPaymentWithOrder(res)
	h.events.Publish(claims.BusinessID, ws.EventPaymentRecorded, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes a payment and takes its amount back off the order.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "payment")
	if !ok {
		return
	}

	res, err := h.svc.DeletePayment(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "delete payment", err)
		return
	}

	h.events.Publish(claims.BusinessID, ws.EventPaymentDeleted, paymentDeletedEvent{
		PaymentID: res.Payment.ID,
		Order:     toOrderResponse(res.Order),
	})
	w.WriteHeader(http.StatusNoContent)
}

// ListByOrder returns the payments of one order.
func (h *PaymentHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
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

	payments, err := h.store.ListPaymentsByOrder(r.Context(), database.ListPaymentsByOrderParams{
		OrderID:    id,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		writeInternalError(w, h.log, "list order payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponses(payments))
}

// ListByCustomer returns the payments of one customer.
func (h *PaymentHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	payments, err := h.store.ListPaymentsByCustomer(r.Context(), database.ListPaymentsByCustomerParams{
		CustomerID: id,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		writeInternalError(w, h.log, "list customer payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponses(payments))
}

// Summary totals the customer's orders and outstanding balance.
func (h *PaymentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	summary, err := h.svc.CustomerSummary(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "payment summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerSummaryResponse(summary))
}
