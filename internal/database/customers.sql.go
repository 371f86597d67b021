// source: customers.sql

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, business_id, name, email, phone, address, gender, is_active, created_at, updated_at`

func scanCustomer(row interface{ Scan(...interface{}) error }) (Customer, error) {
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.Address,
		&i.Gender,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectCustomers(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}) ([]Customer, error) {
	defer rows.Close()
	items := []Customer{}
	for rows.Next() {
		i, err := scanCustomer(rows)
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

const listCustomers = `-- name: ListCustomers :many
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1
  AND (is_active = true OR $2::boolean)
  AND ($3::text IS NULL OR name ILIKE '%' || $3 || '%' OR phone ILIKE '%' || $3 || '%' OR email ILIKE '%' || $3 || '%')
ORDER BY name
LIMIT $4 OFFSET $5
`

type ListCustomersParams struct {
	BusinessID      uuid.UUID   `json:"business_id"`
	IncludeInactive bool        `json:"include_inactive"`
	Search          pgtype.Text `json:"search"`
	Limit           int32       `json:"limit"`
	Offset          int32       `json:"offset"`
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers,
		arg.BusinessID,
		arg.IncludeInactive,
		arg.Search,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const listAllCustomers = `-- name: ListAllCustomers :many
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1
ORDER BY created_at
`

func (q *Queries) ListAllCustomers(ctx context.Context, businessID uuid.UUID) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listAllCustomers, businessID)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const getCustomer = `-- name: GetCustomer :one
SELECT ` + customerColumns + ` FROM customers
WHERE id = $1 AND business_id = $2
`

type GetCustomerParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) GetCustomer(ctx context.Context, arg GetCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, arg.ID, arg.BusinessID))
}

const getCustomerByEmail = `-- name: GetCustomerByEmail :one
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1 AND lower(email) = lower($2)
`

type GetCustomerByEmailParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Email      string    `json:"email"`
}

func (q *Queries) GetCustomerByEmail(ctx context.Context, arg GetCustomerByEmailParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByEmail, arg.BusinessID, arg.Email))
}

const getCustomerByPhone = `-- name: GetCustomerByPhone :one
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1 AND phone = $2
`

type GetCustomerByPhoneParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Phone      string    `json:"phone"`
}

func (q *Queries) GetCustomerByPhone(ctx context.Context, arg GetCustomerByPhoneParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByPhone, arg.BusinessID, arg.Phone))
}

const createCustomer = `-- name: CreateCustomer :one
INSERT INTO customers (business_id, name, email, phone, address, gender)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + customerColumns

type CreateCustomerParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Gender     string    `json:"gender"`
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer,
		arg.BusinessID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.Gender,
	)
	return scanCustomer(row)
}

const updateCustomer = `-- name: UpdateCustomer :one
UPDATE customers
SET name = $3, email = $4, phone = $5, address = $6, gender = $7, updated_at = now()
WHERE id = $1 AND business_id = $2
RETURNING ` + customerColumns

type UpdateCustomerParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Gender     string    `json:"gender"`
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer,
		arg.ID,
		arg.BusinessID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.Gender,
	)
	return scanCustomer(row)
}

const setCustomerActive = `-- name: SetCustomerActive :one
UPDATE customers SET is_active = $3, updated_at = now()
WHERE id = $1 AND business_id = $2
RETURNING ` + customerColumns

type SetCustomerActiveParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	IsActive   bool      `json:"is_active"`
}

func (q *Queries) SetCustomerActive(ctx context.Context, arg SetCustomerActiveParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, setCustomerActive, arg.ID, arg.BusinessID, arg.IsActive))
}

const deleteCustomer = `-- name: DeleteCustomer :execrows
DELETE FROM customers WHERE id = $1 AND business_id = $2
`

type DeleteCustomerParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) DeleteCustomer(ctx context.Context, arg DeleteCustomerParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCustomer, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countCustomerDependents = `-- name: CountCustomerDependents :one
SELECT
    (SELECT COUNT(*) FROM orders o WHERE o.customer_id = $1 AND o.business_id = $2)::bigint AS orders,
    ((SELECT COUNT(*) FROM measurements m WHERE m.customer_id = $1 AND m.business_id = $2)
      + (SELECT COUNT(*) FROM customer_measurements cm WHERE cm.customer_id = $1 AND cm.business_id = $2))::bigint AS measurements,
    (SELECT COUNT(*) FROM payments p WHERE p.customer_id = $1 AND p.business_id = $2)::bigint AS payments
`

type CountCustomerDependentsParams struct {
	CustomerID uuid.UUID `json:"customer_id"`
	BusinessID uuid.UUID `json:"business_id"`
}

type CountCustomerDependentsRow struct {
	Orders       int64 `json:"orders"`
	Measurements int64 `json:"measurements"`
	Payments     int64 `json:"payments"`
}

func (q *Queries) CountCustomerDependents(ctx context.Context, arg CountCustomerDependentsParams) (CountCustomerDependentsRow, error) {
	row := q.db.QueryRow(ctx, countCustomerDependents, arg.CustomerID, arg.BusinessID)
	var i CountCustomerDependentsRow
	err := row.Scan(&i.Orders, &i.Measurements, &i.Payments)
	return i, err
}

const searchCustomers = `-- name: SearchCustomers :many
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1
  AND (name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%')
ORDER BY name
LIMIT $3
`

type SearchCustomersParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Query      string    `json:"query"`
	Limit      int32     `json:"limit"`
}

func (q *Queries) SearchCustomers(ctx context.Context, arg SearchCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, searchCustomers, arg.BusinessID, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}
