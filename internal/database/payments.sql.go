// source: payments.sql

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, business_id, order_id, customer_id, amount, payment_method, status, transaction_id, payment_date, notes, created_by, created_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.OrderID,
		&i.CustomerID,
		&i.Amount,
		&i.PaymentMethod,
		&i.Status,
		&i.TransactionID,
		&i.PaymentDate,
		&i.Notes,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

func collectPayments(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}) ([]Payment, error) {
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (business_id, order_id, customer_id, amount, payment_method, status, transaction_id, payment_date, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	BusinessID    uuid.UUID      `json:"business_id"`
	OrderID       uuid.UUID      `json:"order_id"`
	CustomerID    pgtype.UUID    `json:"customer_id"`
	Amount        pgtype.Numeric `json:"amount"`
	PaymentMethod string         `json:"payment_method"`
	Status        string         `json:"status"`
	TransactionID pgtype.Text    `json:"transaction_id"`
	PaymentDate   time.Time      `json:"payment_date"`
	Notes         pgtype.Text    `json:"notes"`
	CreatedBy     pgtype.UUID    `json:"created_by"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.BusinessID,
		arg.OrderID,
		arg.CustomerID,
		arg.Amount,
		arg.PaymentMethod,
		arg.Status,
		arg.TransactionID,
		arg.PaymentDate,
		arg.Notes,
		arg.CreatedBy,
	)
	return scanPayment(row)
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + ` FROM payments
WHERE id = $1 AND business_id = $2
`

type GetPaymentParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) GetPayment(ctx context.Context, arg GetPaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, arg.ID, arg.BusinessID))
}

const getPaymentForUpdate = `-- name: GetPaymentForUpdate :one
SELECT ` + paymentColumns + ` FROM payments
WHERE id = $1 AND business_id = $2
FOR UPDATE
`

type GetPaymentForUpdateParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) GetPaymentForUpdate(ctx context.Context, arg GetPaymentForUpdateParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentForUpdate, arg.ID, arg.BusinessID))
}

const listPaymentsByOrder = `-- name: ListPaymentsByOrder :many
SELECT ` + paymentColumns + ` FROM payments
WHERE order_id = $1 AND business_id = $2
ORDER BY payment_date
`

type ListPaymentsByOrderParams struct {
	OrderID    uuid.UUID `json:"order_id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) ListPaymentsByOrder(ctx context.Context, arg ListPaymentsByOrderParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, arg.OrderID, arg.BusinessID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// Payments recorded without customer_id still belong to the order's customer.
const listPaymentsByCustomer = `-- name: ListPaymentsByCustomer :many
SELECT p.id, p.business_id, p.order_id, p.customer_id, p.amount, p.payment_method, p.status,
       p.transaction_id, p.payment_date, p.notes, p.created_by, p.created_at
FROM payments p
JOIN orders o ON o.id = p.order_id
WHERE o.customer_id = $1 AND p.business_id = $2
ORDER BY p.payment_date DESC
`

type ListPaymentsByCustomerParams struct {
	CustomerID uuid.UUID `json:"customer_id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) ListPaymentsByCustomer(ctx context.Context, arg ListPaymentsByCustomerParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByCustomer, arg.CustomerID, arg.BusinessID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

const listPayments = `-- name: ListPayments :many
SELECT ` + paymentColumns + ` FROM payments
WHERE business_id = $1
  AND ($2::timestamptz IS NULL OR payment_date >= $2)
  AND ($3::timestamptz IS NULL OR payment_date < $3)
ORDER BY payment_date DESC
`

type ListPaymentsParams struct {
	BusinessID uuid.UUID          `json:"business_id"`
	From       pgtype.Timestamptz `json:"from"`
	To         pgtype.Timestamptz `json:"to"`
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPayments, arg.BusinessID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

const updatePayment = `-- name: UpdatePayment :one
UPDATE payments
SET amount = $3, payment_method = $4, status = $5, transaction_id = $6, notes = $7
WHERE id = $1 AND business_id = $2
RETURNING ` + paymentColumns

type UpdatePaymentParams struct {
	ID            uuid.UUID      `json:"id"`
	BusinessID    uuid.UUID      `json:"business_id"`
	Amount        pgtype.Numeric `json:"amount"`
	PaymentMethod string         `json:"payment_method"`
	Status        string         `json:"status"`
	TransactionID pgtype.Text    `json:"transaction_id"`
	Notes         pgtype.Text    `json:"notes"`
}

func (q *Queries) UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePayment,
		arg.ID,
		arg.BusinessID,
		arg.Amount,
		arg.PaymentMethod,
		arg.Status,
		arg.TransactionID,
		arg.Notes,
	)
	return scanPayment(row)
}

const deletePayment = `-- name: DeletePayment :execrows
DELETE FROM payments WHERE id = $1 AND business_id = $2
`

type DeletePaymentParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) DeletePayment(ctx context.Context, arg DeletePaymentParams) (int64, error) {
	result, err := q.db.Exec(ctx, deletePayment, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const searchPayments = `-- name: SearchPayments :many
SELECT p.id, p.business_id, p.order_id, p.customer_id, p.amount, p.payment_method, p.status,
       p.transaction_id, p.payment_date, p.notes, p.created_by, p.created_at
FROM payments p
JOIN orders o ON o.id = p.order_id
JOIN customers c ON c.id = o.customer_id
WHERE p.business_id = $1
  AND (COALESCE(p.transaction_id, '') ILIKE '%' || $2 || '%'
       OR p.payment_method ILIKE '%' || $2 || '%'
       OR c.name ILIKE '%' || $2 || '%')
ORDER BY p.payment_date DESC
LIMIT $3
`

type SearchPaymentsParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Query      string    `json:"query"`
	Limit      int32     `json:"limit"`
}

func (q *Queries) SearchPayments(ctx context.Context, arg SearchPaymentsParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, searchPayments, arg.BusinessID, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}
