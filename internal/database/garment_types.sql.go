// source: garment_types.sql

package database

import (
	"context"

	"github.com/google/uuid"
)

const listGarmentTypes = `-- name: ListGarmentTypes :many
SELECT id, name, created_at FROM garment_types
ORDER BY name
`

func (q *Queries) ListGarmentTypes(ctx context.Context) ([]GarmentType, error) {
	rows, err := q.db.Query(ctx, listGarmentTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GarmentType{}
	for rows.Next() {
		var i GarmentType
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getGarmentType = `-- name: GetGarmentType :one
SELECT id, name, created_at FROM garment_types
WHERE id = $1
`

func (q *Queries) GetGarmentType(ctx context.Context, id uuid.UUID) (GarmentType, error) {
	row := q.db.QueryRow(ctx, getGarmentType, id)
	var i GarmentType
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const createGarmentType = `-- name: CreateGarmentType :one
INSERT INTO garment_types (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateGarmentType(ctx context.Context, name string) (GarmentType, error) {
	row := q.db.QueryRow(ctx, createGarmentType, name)
	var i GarmentType
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const updateGarmentType = `-- name: UpdateGarmentType :one
UPDATE garment_types SET name = $2
WHERE id = $1
RETURNING id, name, created_at
`

type UpdateGarmentTypeParams struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (q *Queries) UpdateGarmentType(ctx context.Context, arg UpdateGarmentTypeParams) (GarmentType, error) {
	row := q.db.QueryRow(ctx, updateGarmentType, arg.ID, arg.Name)
	var i GarmentType
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const deleteGarmentType = `-- name: DeleteGarmentType :execrows
DELETE FROM garment_types WHERE id = $1
`

func (q *Queries) DeleteGarmentType(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteGarmentType, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countGarmentTypeReferences = `-- name: CountGarmentTypeReferences :one
SELECT COUNT(*)::bigint FROM measurements
WHERE garment_type_id = $1
`

func (q *Queries) CountGarmentTypeReferences(ctx context.Context, garmentTypeID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countGarmentTypeReferences, garmentTypeID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
