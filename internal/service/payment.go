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
	"github.com/shopspring/decimal"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/metrics"
)

const maxTransactionIDLength = 100

// PaymentStore defines the DB methods needed by the payment ledger.
// Satisfied by *database.Queries (and its WithTx variant).
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	AdjustOrderPaidAmount(ctx context.Context, arg database.AdjustOrderPaidAmountParams) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	GetPaymentForUpdate(ctx context.Context, arg database.GetPaymentForUpdateParams) (database.Payment, error)
	UpdatePayment(ctx context.Context, arg database.UpdatePaymentParams) (database.Payment, error)
	DeletePayment(ctx context.Context, arg database.DeletePaymentParams) (int64, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// SummaryStore defines the reads behind a customer's payment summary.
type SummaryStore interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	ListOrdersByCustomer(ctx context.Context, arg database.ListOrdersByCustomerParams) ([]database.Order, error)
}

// CreatePaymentRequest is the input for recording a payment.
type CreatePaymentRequest struct {
	BusinessID    uuid.UUID
	OrderID       uuid.UUID
	CustomerID    *uuid.UUID
	Amount        decimal.Decimal
	Method        string
	TransactionID string
	Notes         string
	PaymentDate   *time.Time
	CreatedBy     uuid.UUID
}

// UpdatePaymentRequest carries only the fields being changed.
type UpdatePaymentRequest struct {
	Amount        *decimal.Decimal
	Method        *string
	Status        *string
	TransactionID *string
	Notes         *string
}

// PaymentResult is a payment together with its order after the balance change.
type PaymentResult struct {
	Payment database.Payment
	Order   database.Order
}

// PaymentSummary aggregates every order of a customer.
type PaymentSummary struct {
	CustomerID     uuid.UUID       `json:"customer_id"`
	TotalOrders    int             `json:"total_orders"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	PaidOrders     int             `json:"paid_orders"`
	PendingOrders  int             `json:"pending_orders"`
}

// PaymentService keeps order.paid_amount equal to the sum of the order's
// Completed payments.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
	reader   SummaryStore
	now      func() time.Time
}

func NewPaymentService(pool TxBeginner, newStore NewPaymentStore, reader SummaryStore) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore, reader: reader, now: time.Now}
}

// contribution is what a payment adds to its order's paid amount.
func contribution(status string, amount decimal.Decimal) decimal.Decimal {
	if status == enum.PaymentStatusCompleted {
		return amount
	}
	return decimal.Zero
}

// CreatePayment locks the order, checks the remaining balance and records
// the payment as Completed in one transaction.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResult, error) {
	if !validMoney(req.Amount) {
		return nil, ErrInvalidAmount
	}
	if err := validatePaymentFields(&req.Method, &req.TransactionID, &req.Notes); err != nil {
		return nil, err
	}
	paymentDate := s.now().UTC()
	if req.PaymentDate != nil {
		paymentDate = req.PaymentDate.UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: req.OrderID, BusinessID: req.BusinessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if !order.IsActive {
		return nil, ErrOrderInactive
	}
	if req.CustomerID != nil && *req.CustomerID != order.CustomerID {
		return nil, validationError("customer_id", "customer does not match the order")
	}
	if req.Amount.GreaterThan(RemainingAmount(order)) {
		metrics.PaymentsRejected.WithLabelValues("exceeds_balance").Inc()
		return nil, ErrExceedsBalance
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		BusinessID:    req.BusinessID,
		OrderID:       order.ID,
		CustomerID:    uuidToPg(order.CustomerID),
		Amount:        decimalToNumeric(req.Amount),
		PaymentMethod: req.Method,
		Status:        enum.PaymentStatusCompleted,
		TransactionID: optionalText(req.TransactionID),
		PaymentDate:   paymentDate,
		Notes:         optionalText(req.Notes),
		CreatedBy:     uuidToPg(req.CreatedBy),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	updated, err := adjustPaid(ctx, store, order.ID, req.Amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	metrics.PaymentsRecorded.WithLabelValues(req.Method).Inc()
	return &PaymentResult{Payment: payment, Order: updated}, nil
}

// UpdatePayment applies the provided fields and re-reconciles the order by
// the change in the payment's contribution.
func (s *PaymentService) UpdatePayment(ctx context.Context, businessID, id uuid.UUID, req UpdatePaymentRequest) (*PaymentResult, error) {
	if req.Amount != nil && !validMoney(*req.Amount) {
		return nil, ErrInvalidAmount
	}
	if req.Status != nil && !enum.Contains(enum.PaymentStatuses, *req.Status) {
		return nil, validationError("status", "status must be one of: "+strings.Join(enum.PaymentStatuses, ", "))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetPaymentForUpdate(ctx, database.GetPaymentForUpdateParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}

	amount := numericToDecimal(current.Amount)
	if req.Amount != nil {
		amount = *req.Amount
	}
	method := current.PaymentMethod
	if req.Method != nil {
		method = *req.Method
	}
	status := current.Status
	if req.Status != nil {
		status = *req.Status
	}
	transactionID := current.TransactionID.String
	if req.TransactionID != nil {
		transactionID = *req.TransactionID
	}
	notes := current.Notes.String
	if req.Notes != nil {
		notes = *req.Notes
	}
	if err := validatePaymentFields(&method, &transactionID, &notes); err != nil {
		return nil, err
	}

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: current.OrderID, BusinessID: businessID})
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}

	delta := contribution(status, amount).Sub(contribution(current.Status, numericToDecimal(current.Amount)))
	if !delta.IsZero() {
		if !order.IsActive {
			return nil, ErrOrderInactive
		}
		paid := numericToDecimal(order.PaidAmount).Add(delta)
		if paid.IsNegative() {
			metrics.PaymentsRejected.WithLabelValues("negative_paid").Inc()
			return nil, ErrPaidBelowZero
		}
		if paid.GreaterThan(numericToDecimal(order.TotalAmount)) {
			metrics.PaymentsRejected.WithLabelValues("exceeds_balance").Inc()
			return nil, ErrExceedsBalance
		}
	}

	payment, err := store.UpdatePayment(ctx, database.UpdatePaymentParams{
		ID:            id,
		BusinessID:    businessID,
		Amount:        decimalToNumeric(amount),
		PaymentMethod: method,
		Status:        status,
		TransactionID: optionalText(transactionID),
		Notes:         optionalText(notes),
	})
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	if !delta.IsZero() {
		order, err = adjustPaid(ctx, store, order.ID, delta)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PaymentResult{Payment: payment, Order: order}, nil
}

// DeletePayment removes the payment and takes its contribution back off
// the order. The paid amount never goes negative.
func (s *PaymentService) DeletePayment(ctx context.Context, businessID, id uuid.UUID) (*PaymentResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	payment, err := store.GetPaymentForUpdate(ctx, database.GetPaymentForUpdateParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: payment.OrderID, BusinessID: businessID})
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}

	refund := contribution(payment.Status, numericToDecimal(payment.Amount))
	if !refund.IsZero() {
		if numericToDecimal(order.PaidAmount).LessThan(refund) {
			metrics.PaymentsRejected.WithLabelValues("negative_paid").Inc()
			return nil, ErrPaidBelowZero
		}
		order, err = adjustPaid(ctx, store, order.ID, refund.Neg())
		if err != nil {
			return nil, err
		}
	}

	if _, err := store.DeletePayment(ctx, database.DeletePaymentParams{ID: id, BusinessID: businessID}); err != nil {
		return nil, fmt.Errorf("delete payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PaymentResult{Payment: payment, Order: order}, nil
}

// CustomerSummary totals every order of the customer. An order with no
// remaining balance counts as paid.
func (s *PaymentService) CustomerSummary(ctx context.Context, businessID, customerID uuid.UUID) (*PaymentSummary, error) {
	if _, err := s.reader.GetCustomer(ctx, database.GetCustomerParams{ID: customerID, BusinessID: businessID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	orders, err := s.reader.ListOrdersByCustomer(ctx, database.ListOrdersByCustomerParams{
		CustomerID: customerID,
		BusinessID: businessID,
	})
	if err != nil {
		return nil, fmt.Errorf("list customer orders: %w", err)
	}
	return summarize(customerID, orders), nil
}

func summarize(customerID uuid.UUID, orders []database.Order) *PaymentSummary {
	sum := &PaymentSummary{
		CustomerID:     customerID,
		TotalOrders:    len(orders),
		TotalAmount:    decimal.Zero,
		PaidAmount:     decimal.Zero,
		PendingBalance: decimal.Zero,
	}
	for _, o := range orders {
		remaining := RemainingAmount(o)
		sum.TotalAmount = sum.TotalAmount.Add(numericToDecimal(o.TotalAmount))
		sum.PaidAmount = sum.PaidAmount.Add(numericToDecimal(o.PaidAmount))
		sum.PendingBalance = sum.PendingBalance.Add(remaining)
		if remaining.IsZero() {
			sum.PaidOrders++
		} else {
			sum.PendingOrders++
		}
	}
	return sum
}

func adjustPaid(ctx context.Context, store PaymentStore, orderID uuid.UUID, delta decimal.Decimal) (database.Order, error) {
	order, err := store.AdjustOrderPaidAmount(ctx, database.AdjustOrderPaidAmountParams{
		ID:    orderID,
		Delta: decimalToNumeric(delta),
	})
	if err != nil {
		if database.IsCheckViolation(err, database.ConstraintOrderPaid) {
			return database.Order{}, ErrExceedsBalance
		}
		return database.Order{}, fmt.Errorf("adjust paid amount: %w", err)
	}
	return order, nil
}

func validatePaymentFields(method, transactionID, notes *string) error {
	*method = strings.TrimSpace(*method)
	*transactionID = strings.TrimSpace(*transactionID)
	*notes = strings.TrimSpace(*notes)
	if !enum.Contains(enum.PaymentMethods, *method) {
		return validationError("payment_method", "payment_method must be one of: "+strings.Join(enum.PaymentMethods, ", "))
	}
	if utf8.RuneCountInString(*transactionID) > maxTransactionIDLength {
		return validationError("transaction_id", "transaction_id must be at most 100 characters")
	}
	if utf8.RuneCountInString(*notes) > maxNotesLength {
		return validationError("notes", "notes must be at most 500 characters")
	}
	return nil
}
