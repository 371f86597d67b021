// source: orders.sql

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, business_id, customer_id, measurement_id, status, priority, order_date, estimated_delivery_date, actual_delivery_date, notes, total_amount, paid_amount, is_active, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.CustomerID,
		&i.MeasurementID,
		&i.Status,
		&i.Priority,
		&i.OrderDate,
		&i.EstimatedDeliveryDate,
		&i.ActualDeliveryDate,
		&i.Notes,
		&i.TotalAmount,
		&i.PaidAmount,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (business_id, customer_id, measurement_id, status, priority, order_date, estimated_delivery_date, notes, total_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	BusinessID            uuid.UUID      `json:"business_id"`
	CustomerID            uuid.UUID      `json:"customer_id"`
	MeasurementID         pgtype.UUID    `json:"measurement_id"`
	Status                string         `json:"status"`
	Priority              string         `json:"priority"`
	OrderDate             time.Time      `json:"order_date"`
	EstimatedDeliveryDate time.Time      `json:"estimated_delivery_date"`
	Notes                 pgtype.Text    `json:"notes"`
	TotalAmount           pgtype.Numeric `json:"total_amount"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.BusinessID,
		arg.CustomerID,
		arg.MeasurementID,
		arg.Status,
		arg.Priority,
		arg.OrderDate,
		arg.EstimatedDeliveryDate,
		arg.Notes,
		arg.TotalAmount,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND business_id = $2
`

type GetOrderParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.BusinessID))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND business_id = $2
FOR NO KEY UPDATE
`

type GetOrderForUpdateParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderForUpdateParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.BusinessID))
}

const listOrdersByCustomer = `-- name: ListOrdersByCustomer :many
SELECT ` + orderColumns + ` FROM orders
WHERE customer_id = $1 AND business_id = $2
ORDER BY order_date DESC
`

type ListOrdersByCustomerParams struct {
	CustomerID uuid.UUID `json:"customer_id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, arg ListOrdersByCustomerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, arg.CustomerID, arg.BusinessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

// Shared filter for ListOrders / CountOrders ($1..$9).
const orderFilter = `
WHERE o.business_id = $1
  AND (o.is_active = true OR $2::boolean)
  AND ($3::text IS NULL OR o.status = $3)
  AND ($4::text IS NULL OR o.priority = $4)
  AND ($5::uuid IS NULL OR o.customer_id = $5)
  AND ($6::timestamptz IS NULL OR o.order_date >= $6)
  AND ($7::timestamptz IS NULL OR o.order_date < $7)
  AND (NOT $8::boolean OR o.status <> 'Delivered')
  AND ($9::timestamptz IS NULL OR o.estimated_delivery_date < $9)
`

const listOrders = `-- name: ListOrders :many
SELECT o.id, o.business_id, o.customer_id, o.measurement_id, o.status, o.priority, o.order_date,
       o.estimated_delivery_date, o.actual_delivery_date, o.notes, o.total_amount, o.paid_amount,
       o.is_active, o.created_at, o.updated_at,
       c.name AS customer_name, c.email AS customer_email, c.phone AS customer_phone
FROM orders o
JOIN customers c ON c.id = o.customer_id` + orderFilter + `
ORDER BY o.order_date DESC
LIMIT $10 OFFSET $11
`

type ListOrdersParams struct {
	BusinessID       uuid.UUID          `json:"business_id"`
	IncludeInactive  bool               `json:"include_inactive"`
	Status           pgtype.Text        `json:"status"`
	Priority         pgtype.Text        `json:"priority"`
	CustomerID       pgtype.UUID        `json:"customer_id"`
	From             pgtype.Timestamptz `json:"from"`
	To               pgtype.Timestamptz `json:"to"`
	ExcludeDelivered bool               `json:"exclude_delivered"`
	DueBefore        pgtype.Timestamptz `json:"due_before"`
	Limit            int32              `json:"limit"`
	Offset           int32              `json:"offset"`
}

type ListOrdersRow struct {
	ID                    uuid.UUID          `json:"id"`
	BusinessID            uuid.UUID          `json:"business_id"`
	CustomerID            uuid.UUID          `json:"customer_id"`
	MeasurementID         pgtype.UUID        `json:"measurement_id"`
	Status                string             `json:"status"`
	Priority              string             `json:"priority"`
	OrderDate             time.Time          `json:"order_date"`
	EstimatedDeliveryDate time.Time          `json:"estimated_delivery_date"`
	ActualDeliveryDate    pgtype.Timestamptz `json:"actual_delivery_date"`
	Notes                 pgtype.Text        `json:"notes"`
	TotalAmount           pgtype.Numeric     `json:"total_amount"`
	PaidAmount            pgtype.Numeric     `json:"paid_amount"`
	IsActive              bool               `json:"is_active"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
	CustomerName          string             `json:"customer_name"`
	CustomerEmail         string             `json:"customer_email"`
	CustomerPhone         string             `json:"customer_phone"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]ListOrdersRow, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.BusinessID,
		arg.IncludeInactive,
		arg.Status,
		arg.Priority,
		arg.CustomerID,
		arg.From,
		arg.To,
		arg.ExcludeDelivered,
		arg.DueBefore,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListOrdersRow{}
	for rows.Next() {
		var i ListOrdersRow
		if err := rows.Scan(
			&i.ID,
			&i.BusinessID,
			&i.CustomerID,
			&i.MeasurementID,
			&i.Status,
			&i.Priority,
			&i.OrderDate,
			&i.EstimatedDeliveryDate,
			&i.ActualDeliveryDate,
			&i.Notes,
			&i.TotalAmount,
			&i.PaidAmount,
			&i.IsActive,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.CustomerName,
			&i.CustomerEmail,
			&i.CustomerPhone,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countOrders = `-- name: CountOrders :one
SELECT COUNT(*)::bigint FROM orders o` + orderFilter

type CountOrdersParams struct {
	BusinessID       uuid.UUID          `json:"business_id"`
	IncludeInactive  bool               `json:"include_inactive"`
	Status           pgtype.Text        `json:"status"`
	Priority         pgtype.Text        `json:"priority"`
	CustomerID       pgtype.UUID        `json:"customer_id"`
	From             pgtype.Timestamptz `json:"from"`
	To               pgtype.Timestamptz `json:"to"`
	ExcludeDelivered bool               `json:"exclude_delivered"`
	DueBefore        pgtype.Timestamptz `json:"due_before"`
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders,
		arg.BusinessID,
		arg.IncludeInactive,
		arg.Status,
		arg.Priority,
		arg.CustomerID,
		arg.From,
		arg.To,
		arg.ExcludeDelivered,
		arg.DueBefore,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $3,
    notes = COALESCE($4, notes),
    actual_delivery_date = COALESCE($5, actual_delivery_date),
    updated_at = now()
WHERE id = $1 AND business_id = $2 AND is_active = true
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID                 uuid.UUID          `json:"id"`
	BusinessID         uuid.UUID          `json:"business_id"`
	Status             string             `json:"status"`
	Notes              pgtype.Text        `json:"notes"`
	ActualDeliveryDate pgtype.Timestamptz `json:"actual_delivery_date"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.BusinessID,
		arg.Status,
		arg.Notes,
		arg.ActualDeliveryDate,
	)
	return scanOrder(row)
}

const updateOrderDetails = `-- name: UpdateOrderDetails :one
UPDATE orders
SET total_amount = $3, notes = $4, measurement_id = $5, updated_at = now()
WHERE id = $1 AND business_id = $2 AND is_active = true
RETURNING ` + orderColumns

type UpdateOrderDetailsParams struct {
	ID            uuid.UUID      `json:"id"`
	BusinessID    uuid.UUID      `json:"business_id"`
	TotalAmount   pgtype.Numeric `json:"total_amount"`
	Notes         pgtype.Text    `json:"notes"`
	MeasurementID pgtype.UUID    `json:"measurement_id"`
}

func (q *Queries) UpdateOrderDetails(ctx context.Context, arg UpdateOrderDetailsParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderDetails,
		arg.ID,
		arg.BusinessID,
		arg.TotalAmount,
		arg.Notes,
		arg.MeasurementID,
	)
	return scanOrder(row)
}

const deactivateOrder = `-- name: DeactivateOrder :one
UPDATE orders
SET is_active = false,
    updated_at = CASE WHEN is_active THEN now() ELSE updated_at END
WHERE id = $1 AND business_id = $2
RETURNING ` + orderColumns

type DeactivateOrderParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) DeactivateOrder(ctx context.Context, arg DeactivateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, deactivateOrder, arg.ID, arg.BusinessID))
}

const adjustOrderPaidAmount = `-- name: AdjustOrderPaidAmount :one
UPDATE orders
SET paid_amount = paid_amount + $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type AdjustOrderPaidAmountParams struct {
	ID    uuid.UUID      `json:"id"`
	Delta pgtype.Numeric `json:"delta"`
}

func (q *Queries) AdjustOrderPaidAmount(ctx context.Context, arg AdjustOrderPaidAmountParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, adjustOrderPaidAmount, arg.ID, arg.Delta))
}

const createOrderStatusHistory = `-- name: CreateOrderStatusHistory :one
INSERT INTO order_status_history (order_id, from_status, to_status, notes, changed_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, from_status, to_status, notes, changed_by, changed_at
`

type CreateOrderStatusHistoryParams struct {
	OrderID    uuid.UUID   `json:"order_id"`
	FromStatus pgtype.Text `json:"from_status"`
	ToStatus   string      `json:"to_status"`
	Notes      pgtype.Text `json:"notes"`
	ChangedBy  pgtype.UUID `json:"changed_by"`
}

func (q *Queries) CreateOrderStatusHistory(ctx context.Context, arg CreateOrderStatusHistoryParams) (OrderStatusHistory, error) {
	row := q.db.QueryRow(ctx, createOrderStatusHistory,
		arg.OrderID,
		arg.FromStatus,
		arg.ToStatus,
		arg.Notes,
		arg.ChangedBy,
	)
	var i OrderStatusHistory
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.FromStatus,
		&i.ToStatus,
		&i.Notes,
		&i.ChangedBy,
		&i.ChangedAt,
	)
	return i, err
}

const listOrderStatusHistory = `-- name: ListOrderStatusHistory :many
SELECT h.id, h.order_id, h.from_status, h.to_status, h.notes, h.changed_by, h.changed_at
FROM order_status_history h
JOIN orders o ON o.id = h.order_id
WHERE h.order_id = $1 AND o.business_id = $2
ORDER BY h.changed_at
`

type ListOrderStatusHistoryParams struct {
	OrderID    uuid.UUID `json:"order_id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) ListOrderStatusHistory(ctx context.Context, arg ListOrderStatusHistoryParams) ([]OrderStatusHistory, error) {
	rows, err := q.db.Query(ctx, listOrderStatusHistory, arg.OrderID, arg.BusinessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderStatusHistory{}
	for rows.Next() {
		var i OrderStatusHistory
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.FromStatus,
			&i.ToStatus,
			&i.Notes,
			&i.ChangedBy,
			&i.ChangedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchOrders = `-- name: SearchOrders :many
SELECT o.id, o.customer_id, c.name AS customer_name, o.status, o.priority, o.order_date,
       o.total_amount, o.paid_amount
FROM orders o
JOIN customers c ON c.id = o.customer_id
WHERE o.business_id = $1 AND o.is_active = true
  AND (c.name ILIKE '%' || $2 || '%' OR c.phone ILIKE '%' || $2 || '%'
       OR o.status ILIKE '%' || $2 || '%' OR COALESCE(o.notes, '') ILIKE '%' || $2 || '%')
ORDER BY o.order_date DESC
LIMIT $3
`

type SearchOrdersParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Query      string    `json:"query"`
	Limit      int32     `json:"limit"`
}

type SearchOrdersRow struct {
	ID           uuid.UUID      `json:"id"`
	CustomerID   uuid.UUID      `json:"customer_id"`
	CustomerName string         `json:"customer_name"`
	Status       string         `json:"status"`
	Priority     string         `json:"priority"`
	OrderDate    time.Time      `json:"order_date"`
	TotalAmount  pgtype.Numeric `json:"total_amount"`
	PaidAmount   pgtype.Numeric `json:"paid_amount"`
}

func (q *Queries) SearchOrders(ctx context.Context, arg SearchOrdersParams) ([]SearchOrdersRow, error) {
	rows, err := q.db.Query(ctx, searchOrders, arg.BusinessID, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SearchOrdersRow{}
	for rows.Next() {
		var i SearchOrdersRow
		if err := rows.Scan(
			&i.ID,
			&i.CustomerID,
			&i.CustomerName,
			&i.Status,
			&i.Priority,
			&i.OrderDate,
			&i.TotalAmount,
			&i.PaidAmount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
