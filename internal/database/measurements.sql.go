// source: measurements.sql

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const measurementColumns = `id, business_id, customer_id, garment_type_id, template, fabric_image, fabric_color, entry_date, created_at, updated_at`

func scanMeasurement(row interface{ Scan(...interface{}) error }) (Measurement, error) {
	var i Measurement
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.CustomerID,
		&i.GarmentTypeID,
		&i.Template,
		&i.FabricImage,
		&i.FabricColor,
		&i.EntryDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMeasurement = `-- name: CreateMeasurement :one
INSERT INTO measurements (business_id, customer_id, garment_type_id, template, fabric_image, fabric_color, entry_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + measurementColumns

type CreateMeasurementParams struct {
	BusinessID    uuid.UUID   `json:"business_id"`
	CustomerID    uuid.UUID   `json:"customer_id"`
	GarmentTypeID uuid.UUID   `json:"garment_type_id"`
	Template      pgtype.Text `json:"template"`
	FabricImage   string      `json:"fabric_image"`
	FabricColor   string      `json:"fabric_color"`
	EntryDate     time.Time   `json:"entry_date"`
}

func (q *Queries) CreateMeasurement(ctx context.Context, arg CreateMeasurementParams) (Measurement, error) {
	row := q.db.QueryRow(ctx, createMeasurement,
		arg.BusinessID,
		arg.CustomerID,
		arg.GarmentTypeID,
		arg.Template,
		arg.FabricImage,
		arg.FabricColor,
		arg.EntryDate,
	)
	return scanMeasurement(row)
}

const getMeasurement = `-- name: GetMeasurement :one
SELECT ` + measurementColumns + ` FROM measurements
WHERE id = $1 AND business_id = $2
`

type GetMeasurementParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) GetMeasurement(ctx context.Context, arg GetMeasurementParams) (Measurement, error) {
	return scanMeasurement(q.db.QueryRow(ctx, getMeasurement, arg.ID, arg.BusinessID))
}

const listMeasurementsByCustomer = `-- name: ListMeasurementsByCustomer :many
SELECT ` + measurementColumns + ` FROM measurements
WHERE customer_id = $1 AND business_id = $2
ORDER BY entry_date DESC
`

type ListMeasurementsByCustomerParams struct {
	CustomerID uuid.UUID `json:"customer_id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) ListMeasurementsByCustomer(ctx context.Context, arg ListMeasurementsByCustomerParams) ([]Measurement, error) {
	rows, err := q.db.Query(ctx, listMeasurementsByCustomer, arg.CustomerID, arg.BusinessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Measurement{}
	for rows.Next() {
		i, err := scanMeasurement(rows)
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

const updateMeasurementFabric = `-- name: UpdateMeasurementFabric :one
UPDATE measurements
SET fabric_color = $3, fabric_image = $4, entry_date = $5, updated_at = now()
WHERE id = $1 AND business_id = $2
RETURNING ` + measurementColumns

type UpdateMeasurementFabricParams struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	FabricColor string    `json:"fabric_color"`
	FabricImage string    `json:"fabric_image"`
	EntryDate   time.Time `json:"entry_date"`
}

func (q *Queries) UpdateMeasurementFabric(ctx context.Context, arg UpdateMeasurementFabricParams) (Measurement, error) {
	row := q.db.QueryRow(ctx, updateMeasurementFabric,
		arg.ID,
		arg.BusinessID,
		arg.FabricColor,
		arg.FabricImage,
		arg.EntryDate,
	)
	return scanMeasurement(row)
}

const setMeasurementFabricImage = `-- name: SetMeasurementFabricImage :one
UPDATE measurements SET fabric_image = $3, updated_at = now()
WHERE id = $1 AND business_id = $2
RETURNING ` + measurementColumns

type SetMeasurementFabricImageParams struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	FabricImage string    `json:"fabric_image"`
}

func (q *Queries) SetMeasurementFabricImage(ctx context.Context, arg SetMeasurementFabricImageParams) (Measurement, error) {
	return scanMeasurement(q.db.QueryRow(ctx, setMeasurementFabricImage, arg.ID, arg.BusinessID, arg.FabricImage))
}

const deleteMeasurement = `-- name: DeleteMeasurement :execrows
DELETE FROM measurements WHERE id = $1 AND business_id = $2
`

type DeleteMeasurementParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) DeleteMeasurement(ctx context.Context, arg DeleteMeasurementParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMeasurement, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createMeasurementValue = `-- name: CreateMeasurementValue :exec
INSERT INTO measurement_values (measurement_id, field, value)
VALUES ($1, $2, $3)
`

type CreateMeasurementValueParams struct {
	MeasurementID uuid.UUID      `json:"measurement_id"`
	Field         string         `json:"field"`
	Value         pgtype.Numeric `json:"value"`
}

func (q *Queries) CreateMeasurementValue(ctx context.Context, arg CreateMeasurementValueParams) error {
	_, err := q.db.Exec(ctx, createMeasurementValue, arg.MeasurementID, arg.Field, arg.Value)
	return err
}

const deleteMeasurementValues = `-- name: DeleteMeasurementValues :exec
DELETE FROM measurement_values WHERE measurement_id = $1
`

func (q *Queries) DeleteMeasurementValues(ctx context.Context, measurementID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteMeasurementValues, measurementID)
	return err
}

const listMeasurementValues = `-- name: ListMeasurementValues :many
SELECT measurement_id, field, value FROM measurement_values
WHERE measurement_id = $1
ORDER BY field
`

func (q *Queries) ListMeasurementValues(ctx context.Context, measurementID uuid.UUID) ([]MeasurementValue, error) {
	rows, err := q.db.Query(ctx, listMeasurementValues, measurementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MeasurementValue{}
	for rows.Next() {
		var i MeasurementValue
		if err := rows.Scan(&i.MeasurementID, &i.Field, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
