package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/metrics"
)

const maxNotesLength = 500

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	GetMeasurement(ctx context.Context, arg database.GetMeasurementParams) (database.Measurement, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error)
	DeactivateOrder(ctx context.Context, arg database.DeactivateOrderParams) (database.Order, error)
	CreateOrderStatusHistory(ctx context.Context, arg database.CreateOrderStatusHistoryParams) (database.OrderStatusHistory, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the input for creating an order.
type CreateOrderRequest struct {
	BusinessID    uuid.UUID
	CreatedBy     uuid.UUID
	CustomerID    uuid.UUID
	MeasurementID *uuid.UUID
	Priority      string
	TotalAmount   decimal.Decimal
	Notes         string
}

// UpdateStatusRequest moves an order to a new status. Override skips the
// lifecycle check and is limited to owners and managers.
type UpdateStatusRequest struct {
	BusinessID uuid.UUID
	OrderID    uuid.UUID
	Status     string
	Notes      *string
	Override   bool
	Role       string
	ChangedBy  uuid.UUID
}

// UpdateOrderRequest replaces the editable order fields.
type UpdateOrderRequest struct {
	TotalAmount   decimal.Decimal
	Notes         string
	MeasurementID *uuid.UUID
}

// StatusChange is the result of a status update.
type StatusChange struct {
	Order      database.Order
	FromStatus string
}

// OrderService handles the order lifecycle.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: time.Now}
}

// NormalizePriority returns the canonical priority; anything unrecognized is Regular.
func NormalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "express":
		return enum.OrderPriorityExpress
	case "urgent":
		return enum.OrderPriorityUrgent
	}
	return enum.OrderPriorityRegular
}

// LeadTimeDays is the delivery lead time in days for a priority.
func LeadTimeDays(priority string) int {
	switch NormalizePriority(priority) {
	case enum.OrderPriorityExpress:
		return 3
	case enum.OrderPriorityUrgent:
		return 7
	}
	return 14
}

// EstimatedDelivery returns orderDate plus the priority's lead time.
func EstimatedDelivery(orderDate time.Time, priority string) time.Time {
	return orderDate.AddDate(0, 0, LeadTimeDays(priority))
}

// orders.total_amount and payments.amount are NUMERIC(10,2).
var maxMoney = decimal.RequireFromString("99999999.99")

// validMoney reports whether d is a positive amount the money columns can hold.
func validMoney(d decimal.Decimal) bool {
	return d.IsPositive() && !d.GreaterThan(maxMoney)
}

// RemainingAmount is total minus paid. It is never stored.
func RemainingAmount(o database.Order) decimal.Decimal {
	return numericToDecimal(o.TotalAmount).Sub(numericToDecimal(o.PaidAmount))
}

// CreateOrder validates the request and inserts the order with its first
// history entry in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	if !validMoney(req.TotalAmount) {
		return database.Order{}, ErrInvalidTotalAmount
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return database.Order{}, validationError("notes", "notes must be at most 500 characters")
	}
	priority := NormalizePriority(req.Priority)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	customer, err := store.GetCustomer(ctx, database.GetCustomerParams{ID: req.CustomerID, BusinessID: req.BusinessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrCustomerNotFound
		}
		return database.Order{}, fmt.Errorf("get customer: %w", err)
	}
	if !customer.IsActive {
		return database.Order{}, conflictError("customer is inactive")
	}

	measurementID, err := checkOrderMeasurement(ctx, store, req.BusinessID, req.CustomerID, req.MeasurementID)
	if err != nil {
		return database.Order{}, err
	}

	orderDate := s.now().UTC()
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BusinessID:            req.BusinessID,
		CustomerID:            req.CustomerID,
		MeasurementID:         measurementID,
		Status:                enum.OrderStatusPending,
		Priority:              priority,
		OrderDate:             orderDate,
		EstimatedDeliveryDate: EstimatedDelivery(orderDate, priority),
		Notes:                 optionalText(notes),
		TotalAmount:           decimalToNumeric(req.TotalAmount),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	if _, err := store.CreateOrderStatusHistory(ctx, database.CreateOrderStatusHistoryParams{
		OrderID:   order.ID,
		ToStatus:  enum.OrderStatusPending,
		ChangedBy: uuidToPg(req.CreatedBy),
	}); err != nil {
		return database.Order{}, fmt.Errorf("create status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// UpdateStatus applies a status change under a row lock and records it in
// the order history. Delivered stamps the actual delivery date.
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*StatusChange, error) {
	if !enum.Contains(enum.OrderStatuses, req.Status) {
		return nil, validationError("status", "status must be one of: "+strings.Join(enum.OrderStatuses, ", "))
	}
	if req.Override && req.Role != enum.UserRoleOwner && req.Role != enum.UserRoleManager {
		return nil, ErrOverrideForbidden
	}
	var notes pgtype.Text
	if req.Notes != nil {
		n := strings.TrimSpace(*req.Notes)
		if utf8.RuneCountInString(n) > maxNotesLength {
			return nil, validationError("notes", "notes must be at most 500 characters")
		}
		notes = pgtype.Text{String: n, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: req.OrderID, BusinessID: req.BusinessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if !current.IsActive {
		return nil, ErrOrderInactive
	}
	if !req.Override {
		if err := validateStatusTransition(current.Status, req.Status); err != nil {
			return nil, err
		}
	}

	var delivered pgtype.Timestamptz
	if req.Status == enum.OrderStatusDelivered {
		delivered = pgtype.Timestamptz{Time: s.now().UTC(), Valid: true}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:                 req.OrderID,
		BusinessID:         req.BusinessID,
		Status:             req.Status,
		Notes:              notes,
		ActualDeliveryDate: delivered,
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if _, err := store.CreateOrderStatusHistory(ctx, database.CreateOrderStatusHistoryParams{
		OrderID:    req.OrderID,
		FromStatus: pgtype.Text{String: current.Status, Valid: true},
		ToStatus:   req.Status,
		Notes:      notes,
		ChangedBy:  uuidToPg(req.ChangedBy),
	}); err != nil {
		return nil, fmt.Errorf("create status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(current.Status, req.Status, fmt.Sprint(req.Override)).Inc()
	return &StatusChange{Order: updated, FromStatus: current.Status}, nil
}

// UpdateOrder replaces total amount, notes and measurement. The new total
// may not drop below what has already been paid.
func (s *OrderService) UpdateOrder(ctx context.Context, businessID, id uuid.UUID, req UpdateOrderRequest) (database.Order, error) {
	if !validMoney(req.TotalAmount) {
		return database.Order{}, ErrInvalidTotalAmount
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return database.Order{}, validationError("notes", "notes must be at most 500 characters")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if !current.IsActive {
		return database.Order{}, ErrOrderInactive
	}
	if req.TotalAmount.LessThan(numericToDecimal(current.PaidAmount)) {
		return database.Order{}, ErrTotalBelowPaid
	}

	measurementID, err := checkOrderMeasurement(ctx, store, businessID, current.CustomerID, req.MeasurementID)
	if err != nil {
		return database.Order{}, err
	}

	updated, err := store.UpdateOrderDetails(ctx, database.UpdateOrderDetailsParams{
		ID:            id,
		BusinessID:    businessID,
		TotalAmount:   decimalToNumeric(req.TotalAmount),
		Notes:         optionalText(notes),
		MeasurementID: measurementID,
	})
	if err != nil {
		if database.IsCheckViolation(err, database.ConstraintOrderPaid) {
			return database.Order{}, ErrTotalBelowPaid
		}
		return database.Order{}, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// DeleteOrder deactivates the order. Deactivating an inactive order is a no-op.
func (s *OrderService) DeleteOrder(ctx context.Context, businessID, id uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := s.newStore(tx).DeactivateOrder(ctx, database.DeactivateOrderParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("deactivate order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

func checkOrderMeasurement(ctx context.Context, store OrderStore, businessID, customerID uuid.UUID, id *uuid.UUID) (pgtype.UUID, error) {
	if id == nil {
		return pgtype.UUID{}, nil
	}
	m, err := store.GetMeasurement(ctx, database.GetMeasurementParams{ID: *id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgtype.UUID{}, ErrMeasurementNotFound
		}
		return pgtype.UUID{}, fmt.Errorf("get measurement: %w", err)
	}
	if m.CustomerID != customerID {
		return pgtype.UUID{}, validationError("measurement_id", "measurement belongs to a different customer")
	}
	return uuidToPg(*id), nil
}

// --- Helpers ---

// allowedTransitions defines the forward lifecycle.
// Key is current status, value is the status it can move to.
var allowedTransitions = map[string]string{
	enum.OrderStatusPending:          enum.OrderStatusInProgress,
	enum.OrderStatusInProgress:       enum.OrderStatusReadyForDelivery,
	enum.OrderStatusReadyForDelivery: enum.OrderStatusDelivered,
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return &DomainError{Class: ErrConflict, Field: "status", Message: fmt.Sprintf("cannot transition from %s", current)}
	}
	if allowed != next {
		return &DomainError{Class: ErrConflict, Field: "status", Message: fmt.Sprintf("cannot transition from %s to %s", current, next)}
	}
	return nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
