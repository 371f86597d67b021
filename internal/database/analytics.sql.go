// source: analytics.sql

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Revenue is the sum of Completed payments.
const getDashboardTotals = `-- name: GetDashboardTotals :one
SELECT
    COALESCE((SELECT SUM(amount) FROM payments
              WHERE business_id = $1 AND status = 'Completed'), 0)::numeric AS total_revenue,
    COALESCE((SELECT SUM(amount) FROM payments
              WHERE business_id = $1 AND status = 'Completed' AND payment_date >= $2), 0)::numeric AS month_revenue,
    COALESCE((SELECT SUM(amount) FROM payments
              WHERE business_id = $1 AND status = 'Completed' AND payment_date >= $3 AND payment_date < $2), 0)::numeric AS previous_month_revenue,
    (SELECT COUNT(*) FROM orders WHERE business_id = $1 AND is_active)::bigint AS total_orders,
    (SELECT COUNT(*) FROM orders WHERE business_id = $1 AND is_active AND order_date >= $2)::bigint AS month_orders,
    (SELECT COUNT(*) FROM customers WHERE business_id = $1 AND is_active)::bigint AS total_customers,
    (SELECT COUNT(*) FROM customers WHERE business_id = $1 AND created_at >= $2)::bigint AS month_customers,
    COALESCE((SELECT AVG(total_amount) FROM orders WHERE business_id = $1 AND is_active), 0)::numeric AS average_order_value
`

type GetDashboardTotalsParams struct {
	BusinessID         uuid.UUID `json:"business_id"`
	MonthStart         time.Time `json:"month_start"`
	PreviousMonthStart time.Time `json:"previous_month_start"`
}

type GetDashboardTotalsRow struct {
	TotalRevenue         pgtype.Numeric `json:"total_revenue"`
	MonthRevenue         pgtype.Numeric `json:"month_revenue"`
	PreviousMonthRevenue pgtype.Numeric `json:"previous_month_revenue"`
	TotalOrders          int64          `json:"total_orders"`
	MonthOrders          int64          `json:"month_orders"`
	TotalCustomers       int64          `json:"total_customers"`
	MonthCustomers       int64          `json:"month_customers"`
	AverageOrderValue    pgtype.Numeric `json:"average_order_value"`
}

func (q *Queries) GetDashboardTotals(ctx context.Context, arg GetDashboardTotalsParams) (GetDashboardTotalsRow, error) {
	row := q.db.QueryRow(ctx, getDashboardTotals, arg.BusinessID, arg.MonthStart, arg.PreviousMonthStart)
	var i GetDashboardTotalsRow
	err := row.Scan(
		&i.TotalRevenue,
		&i.MonthRevenue,
		&i.PreviousMonthRevenue,
		&i.TotalOrders,
		&i.MonthOrders,
		&i.TotalCustomers,
		&i.MonthCustomers,
		&i.AverageOrderValue,
	)
	return i, err
}

const getMonthlyRevenue = `-- name: GetMonthlyRevenue :many
WITH months AS (
    SELECT generate_series(date_trunc('month', $2::timestamptz), date_trunc('month', now()), interval '1 month') AS month
)
SELECT m.month::timestamptz AS month,
       COALESCE((SELECT SUM(p.amount) FROM payments p
                 WHERE p.business_id = $1 AND p.status = 'Completed'
                   AND date_trunc('month', p.payment_date) = m.month), 0)::numeric AS revenue,
       (SELECT COUNT(*) FROM orders o
        WHERE o.business_id = $1 AND o.is_active
          AND date_trunc('month', o.order_date) = m.month)::bigint AS order_count
FROM months m
ORDER BY m.month
`

type GetMonthlyRevenueParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Since      time.Time `json:"since"`
}

type GetMonthlyRevenueRow struct {
	Month      time.Time      `json:"month"`
	Revenue    pgtype.Numeric `json:"revenue"`
	OrderCount int64          `json:"order_count"`
}

func (q *Queries) GetMonthlyRevenue(ctx context.Context, arg GetMonthlyRevenueParams) ([]GetMonthlyRevenueRow, error) {
	rows, err := q.db.Query(ctx, getMonthlyRevenue, arg.BusinessID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetMonthlyRevenueRow{}
	for rows.Next() {
		var i GetMonthlyRevenueRow
		if err := rows.Scan(&i.Month, &i.Revenue, &i.OrderCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countCustomersByGender = `-- name: CountCustomersByGender :many
SELECT gender, COUNT(*)::bigint AS count
FROM customers
WHERE business_id = $1 AND is_active
GROUP BY gender
ORDER BY gender
`

type CountCustomersByGenderRow struct {
	Gender string `json:"gender"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountCustomersByGender(ctx context.Context, businessID uuid.UUID) ([]CountCustomersByGenderRow, error) {
	rows, err := q.db.Query(ctx, countCustomersByGender, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountCustomersByGenderRow{}
	for rows.Next() {
		var i CountCustomersByGenderRow
		if err := rows.Scan(&i.Gender, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countNewCustomersByMonth = `-- name: CountNewCustomersByMonth :many
SELECT date_trunc('month', created_at)::timestamptz AS month, COUNT(*)::bigint AS count
FROM customers
WHERE business_id = $1 AND created_at >= $2
GROUP BY 1
ORDER BY 1
`

type CountNewCustomersByMonthParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Since      time.Time `json:"since"`
}

type CountNewCustomersByMonthRow struct {
	Month time.Time `json:"month"`
	Count int64     `json:"count"`
}

func (q *Queries) CountNewCustomersByMonth(ctx context.Context, arg CountNewCustomersByMonthParams) ([]CountNewCustomersByMonthRow, error) {
	rows, err := q.db.Query(ctx, countNewCustomersByMonth, arg.BusinessID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountNewCustomersByMonthRow{}
	for rows.Next() {
		var i CountNewCustomersByMonthRow
		if err := rows.Scan(&i.Month, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTopCustomers = `-- name: ListTopCustomers :many
SELECT c.id, c.name, COUNT(o.id)::bigint AS order_count,
       COALESCE(SUM(o.paid_amount), 0)::numeric AS total_spent
FROM customers c
JOIN orders o ON o.customer_id = c.id AND o.is_active
WHERE c.business_id = $1
GROUP BY c.id, c.name
ORDER BY total_spent DESC, c.name
LIMIT $2
`

type ListTopCustomersParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Limit      int32     `json:"limit"`
}

type ListTopCustomersRow struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	OrderCount int64          `json:"order_count"`
	TotalSpent pgtype.Numeric `json:"total_spent"`
}

func (q *Queries) ListTopCustomers(ctx context.Context, arg ListTopCustomersParams) ([]ListTopCustomersRow, error) {
	rows, err := q.db.Query(ctx, listTopCustomers, arg.BusinessID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListTopCustomersRow{}
	for rows.Next() {
		var i ListTopCustomersRow
		if err := rows.Scan(&i.ID, &i.Name, &i.OrderCount, &i.TotalSpent); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countOrdersByStatus = `-- name: CountOrdersByStatus :many
SELECT status, COUNT(*)::bigint AS count
FROM orders
WHERE business_id = $1 AND is_active
GROUP BY status
`

type CountOrdersByStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountOrdersByStatus(ctx context.Context, businessID uuid.UUID) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountOrdersByStatusRow{}
	for rows.Next() {
		var i CountOrdersByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumPaymentsByMethod = `-- name: SumPaymentsByMethod :many
SELECT payment_method, COUNT(*)::bigint AS transaction_count, SUM(amount)::numeric AS total_amount
FROM payments
WHERE business_id = $1 AND status = 'Completed'
GROUP BY payment_method
ORDER BY total_amount DESC
`

type SumPaymentsByMethodRow struct {
	PaymentMethod    string         `json:"payment_method"`
	TransactionCount int64          `json:"transaction_count"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
}

func (q *Queries) SumPaymentsByMethod(ctx context.Context, businessID uuid.UUID) ([]SumPaymentsByMethodRow, error) {
	rows, err := q.db.Query(ctx, sumPaymentsByMethod, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumPaymentsByMethodRow{}
	for rows.Next() {
		var i SumPaymentsByMethodRow
		if err := rows.Scan(&i.PaymentMethod, &i.TransactionCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
