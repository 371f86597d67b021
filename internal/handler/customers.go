package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/service"
	"go.uber.org/zap"
)

// CustomerServicer defines the service methods needed by customer handlers.
// Satisfied by *service.CustomerService; narrow interface for testability.
type CustomerServicer interface {
	Get(ctx context.Context, businessID, id uuid.UUID) (database.Customer, error)
	List(ctx context.Context, businessID uuid.UUID, p service.CustomerListParams) ([]database.Customer, error)
	Create(ctx context.Context, businessID uuid.UUID, in service.CustomerInput) (database.Customer, error)
	Update(ctx context.Context, businessID, id uuid.UUID, in service.CustomerInput) (database.Customer, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) error
	SetActive(ctx context.Context, businessID, id uuid.UUID, active bool) (database.Customer, error)
	FindByEmail(ctx context.Context, businessID uuid.UUID, email string) (database.Customer, error)
	FindByPhone(ctx context.Context, businessID uuid.UUID, phone string) (database.Customer, error)
	CheckDuplicate(ctx context.Context, businessID uuid.UUID, email, phone string) (service.DuplicateCheck, error)
}

// CustomerRecordStore reads the orders and payments attached to a customer.
// Satisfied by *database.Queries.
type CustomerRecordStore interface {
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
	ListPaymentsByCustomer(ctx context.Context, arg database.ListPaymentsByCustomerParams) ([]database.Payment, error)
}

// PaymentSummarizer is satisfied by *service.PaymentService.
type PaymentSummarizer interface {
	CustomerSummary(ctx context.Context, businessID, customerID uuid.UUID) (*service.PaymentSummary, error)
}

// CustomerHandler handles customer registry endpoints.
type CustomerHandler struct {
	svc      CustomerServicer
	records  CustomerRecordStore
	payments PaymentSummarizer
	log      *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(svc CustomerServicer, records CustomerRecordStore, payments PaymentSummarizer, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{svc: svc, records: records, payments: payments, log: log}
}

// RegisterRoutes registers customer endpoints. Expected to be mounted at /customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/check-duplicate", h.CheckDuplicate)
	r.Get("/lookup", h.Lookup)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/deactivate", h.Deactivate)
	r.Post("/{id}/activate", h.Activate)
	r.Get("/{id}/orders", h.Orders)
	r.Get("/{id}/payments", h.Payments)
	r.Get("/{id}/summary", h.Summary)
}

// --- Request / Response types ---

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Gender  string `json:"gender"`
}

func (req customerRequest) input() service.CustomerInput {
	return service.CustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Gender:  req.Gender,
	}
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Gender    string    `json:"gender,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Gender:    c.Gender,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type customerSummaryResponse struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	TotalOrders    int       `json:"total_orders"`
	TotalAmount    string    `json:"total_amount"`
	PaidAmount     string    `json:"paid_amount"`
	PendingBalance string    `json:"pending_balance"`
	PaidOrders     int       `json:"paid_orders"`
	PendingOrders  int       `json:"pending_orders"`
}

func toCustomerSummaryResponse(s *service.PaymentSummary) customerSummaryResponse {
	return customerSummaryResponse{
		CustomerID:     s.CustomerID,
		TotalOrders:    s.TotalOrders,
		TotalAmount:    s.TotalAmount.StringFixed(2),
		PaidAmount:     s.PaidAmount.StringFixed(2),
		PendingBalance: s.PendingBalance.StringFixed(2),
		PaidOrders:     s.PaidOrders,
		PendingOrders:  s.PendingOrders,
	}
}

// --- Handlers ---

// List returns customers of the caller's business, newest first.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	limit, offset := parseLimitOffset(r)
	customers, err := h.svc.List(r.Context(), claims.BusinessID, service.CustomerListParams{
		Search:          strings.TrimSpace(r.URL.Query().Get("search")),
		IncludeInactive: queryBool(r, "include_inactive"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		writeServiceError(w, h.log, "list customers", err)
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one customer.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	c, err := h.svc.Get(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

// Create registers a new customer.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req customerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.Create(r.Context(), claims.BusinessID, req.input())
	if err != nil {
		writeServiceError(w, h.log, "create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(c))
}

// Update replaces a customer's details.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	var req customerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.Update(r.Context(), claims.BusinessID, id, req.input())
	if err != nil {
		writeServiceError(w, h.log, "update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

// Delete removes a customer that has no orders, measurements or payments.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), claims.BusinessID, id); err != nil {
		writeServiceError(w, h.log, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deactivate soft-deletes a customer.
func (h *CustomerHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate restores a deactivated customer.
func (h *CustomerHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *CustomerHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	c, err := h.svc.SetActive(r.Context(), claims.BusinessID, id, active)
	if err != nil {
		writeServiceError(w, h.log, "set customer active", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

// CheckDuplicate reports whether an email or phone is already registered.
func (h *CustomerHandler) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Get("email") == "" && q.Get("phone") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email or phone is required"})
		return
	}

	result, err := h.svc.CheckDuplicate(r.Context(), claims.BusinessID, q.Get("email"), q.Get("phone"))
	if err != nil {
		writeServiceError(w, h.log, "check duplicate customer", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Lookup finds a customer by ?email= or ?phone=.
func (h *CustomerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var (
		c   database.Customer
		err error
	)
	q := r.URL.Query()
	switch {
	case q.Get("email") != "":
		c, err = h.svc.FindByEmail(r.Context(), claims.BusinessID, q.Get("email"))
	case q.Get("phone") != "":
		c, err = h.svc.FindByPhone(r.Context(), claims.BusinessID, q.Get("phone"))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email or phone is required"})
		return
	}
	if err != nil {
		writeServiceError(w, h.log, "lookup customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

// Orders lists every order of the customer, including inactive ones.
func (h *CustomerHandler) Orders(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	if _, err := h.svc.Get(r.Context(), claims.BusinessID, id); err != nil {
		writeServiceError(w, h.log, "get customer", err)
		return
	}

	orders, err := h.records.ListOrdersByCustomer(r.Context(), database.ListOrdersByCustomerParams{
		CustomerID: id,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		writeInternalError(w, h.log, "list customer orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Payments lists every payment recorded against the customer's orders.
func (h *CustomerHandler) Payments(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	if _, err := h.svc.Get(r.Context(), claims.BusinessID, id); err != nil {
		writeServiceError(w, h.log, "get customer", err)
		return
	}

	payments, err := h.records.ListPaymentsByCustomer(r.Context(), database.ListPaymentsByCustomerParams{
		CustomerID: id,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		writeInternalError(w, h.log, "list customer payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Summary totals the customer's orders and outstanding balance.
func (h *CustomerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	summary, err := h.payments.CustomerSummary(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "customer summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerSummaryResponse(summary))
}
