// source: users.sql

package database

import (
	"context"

	"github.com/google/uuid"
)

const createBusiness = `-- name: CreateBusiness :one
INSERT INTO businesses (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateBusiness(ctx context.Context, name string) (Business, error) {
	row := q.db.QueryRow(ctx, createBusiness, name)
	var i Business
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const getBusiness = `-- name: GetBusiness :one
SELECT id, name, created_at FROM businesses
WHERE id = $1
`

func (q *Queries) GetBusiness(ctx context.Context, id uuid.UUID) (Business, error) {
	row := q.db.QueryRow(ctx, getBusiness, id)
	var i Business
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const userColumns = `id, business_id, email, full_name, phone, hashed_password, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.Email,
		&i.FullName,
		&i.Phone,
		&i.HashedPassword,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (business_id, email, full_name, phone, hashed_password, role)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

type CreateUserParams struct {
	BusinessID     uuid.UUID `json:"business_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Phone          string    `json:"phone"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.BusinessID,
		arg.Email,
		arg.FullName,
		arg.Phone,
		arg.HashedPassword,
		arg.Role,
	)
	return scanUser(row)
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users
WHERE lower(email) = lower($1) AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listUsersByBusiness = `-- name: ListUsersByBusiness :many
SELECT ` + userColumns + ` FROM users
WHERE business_id = $1 AND is_active = true
ORDER BY full_name
`

func (q *Queries) ListUsersByBusiness(ctx context.Context, businessID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByBusiness, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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

const updateUser = `-- name: UpdateUser :one
UPDATE users
SET full_name = $3, phone = $4, role = $5, updated_at = now()
WHERE id = $1 AND business_id = $2 AND is_active = true
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Role       string    `json:"role"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.BusinessID,
		arg.FullName,
		arg.Phone,
		arg.Role,
	)
	return scanUser(row)
}

const softDeleteUser = `-- name: SoftDeleteUser :one
UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND business_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteUserParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) SoftDeleteUser(ctx context.Context, arg SoftDeleteUserParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteUser, arg.ID, arg.BusinessID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
