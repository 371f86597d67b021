// source: customer_measurements.sql

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerMeasurementColumns = `id, business_id, customer_id, gender, garment_type, measurement_type, value, unit, created_at`

func scanCustomerMeasurement(row interface{ Scan(...interface{}) error }) (CustomerMeasurement, error) {
	var i CustomerMeasurement
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.CustomerID,
		&i.Gender,
		&i.GarmentType,
		&i.MeasurementType,
		&i.Value,
		&i.Unit,
		&i.CreatedAt,
	)
	return i, err
}

const createCustomerMeasurement = `-- name: CreateCustomerMeasurement :one
INSERT INTO customer_measurements (business_id, customer_id, gender, garment_type, measurement_type, value, unit)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + customerMeasurementColumns

type CreateCustomerMeasurementParams struct {
	BusinessID      uuid.UUID      `json:"business_id"`
	CustomerID      uuid.UUID      `json:"customer_id"`
	Gender          string         `json:"gender"`
	GarmentType     pgtype.Text    `json:"garment_type"`
	MeasurementType string         `json:"measurement_type"`
	Value           pgtype.Numeric `json:"value"`
	Unit            string         `json:"unit"`
}

func (q *Queries) CreateCustomerMeasurement(ctx context.Context, arg CreateCustomerMeasurementParams) (CustomerMeasurement, error) {
	row := q.db.QueryRow(ctx, createCustomerMeasurement,
		arg.BusinessID,
		arg.CustomerID,
		arg.Gender,
		arg.GarmentType,
		arg.MeasurementType,
		arg.Value,
		arg.Unit,
	)
	return scanCustomerMeasurement(row)
}

const getCustomerMeasurement = `-- name: GetCustomerMeasurement :one
SELECT ` + customerMeasurementColumns + ` FROM customer_measurements
WHERE id = $1 AND business_id = $2
`

type GetCustomerMeasurementParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) GetCustomerMeasurement(ctx context.Context, arg GetCustomerMeasurementParams) (CustomerMeasurement, error) {
	return scanCustomerMeasurement(q.db.QueryRow(ctx, getCustomerMeasurement, arg.ID, arg.BusinessID))
}

const listCustomerMeasurements = `-- name: ListCustomerMeasurements :many
SELECT ` + customerMeasurementColumns + ` FROM customer_measurements
WHERE customer_id = $1 AND business_id = $2
ORDER BY created_at DESC
`

type ListCustomerMeasurementsParams struct {
	CustomerID uuid.UUID `json:"customer_id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) ListCustomerMeasurements(ctx context.Context, arg ListCustomerMeasurementsParams) ([]CustomerMeasurement, error) {
	rows, err := q.db.Query(ctx, listCustomerMeasurements, arg.CustomerID, arg.BusinessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CustomerMeasurement{}
	for rows.Next() {
		i, err := scanCustomerMeasurement(rows)
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

const updateCustomerMeasurement = `-- name: UpdateCustomerMeasurement :one
UPDATE customer_measurements
SET gender = $3, garment_type = $4, measurement_type = $5, value = $6, unit = $7
WHERE id = $1 AND business_id = $2
RETURNING ` + customerMeasurementColumns

type UpdateCustomerMeasurementParams struct {
	ID              uuid.UUID      `json:"id"`
	BusinessID      uuid.UUID      `json:"business_id"`
	Gender          string         `json:"gender"`
	GarmentType     pgtype.Text    `json:"garment_type"`
	MeasurementType string         `json:"measurement_type"`
	Value           pgtype.Numeric `json:"value"`
	Unit            string         `json:"unit"`
}

func (q *Queries) UpdateCustomerMeasurement(ctx context.Context, arg UpdateCustomerMeasurementParams) (CustomerMeasurement, error) {
	row := q.db.QueryRow(ctx, updateCustomerMeasurement,
		arg.ID,
		arg.BusinessID,
		arg.Gender,
		arg.GarmentType,
		arg.MeasurementType,
		arg.Value,
		arg.Unit,
	)
	return scanCustomerMeasurement(row)
}

const deleteCustomerMeasurement = `-- name: DeleteCustomerMeasurement :execrows
DELETE FROM customer_measurements WHERE id = $1 AND business_id = $2
`

type DeleteCustomerMeasurementParams struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
}

func (q *Queries) DeleteCustomerMeasurement(ctx context.Context, arg DeleteCustomerMeasurementParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCustomerMeasurement, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listRecentCustomerMeasurements = `-- name: ListRecentCustomerMeasurements :many
SELECT cm.id, cm.customer_id, c.name AS customer_name, cm.gender, cm.garment_type,
       cm.measurement_type, cm.value, cm.unit, cm.created_at
FROM customer_measurements cm
JOIN customers c ON c.id = cm.customer_id
WHERE cm.business_id = $1
ORDER BY cm.created_at DESC
LIMIT $2
`

type ListRecentCustomerMeasurementsParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Limit      int32     `json:"limit"`
}

type ListRecentCustomerMeasurementsRow struct {
	ID              uuid.UUID      `json:"id"`
	CustomerID      uuid.UUID      `json:"customer_id"`
	CustomerName    string         `json:"customer_name"`
	Gender          string         `json:"gender"`
	GarmentType     pgtype.Text    `json:"garment_type"`
	MeasurementType string         `json:"measurement_type"`
	Value           pgtype.Numeric `json:"value"`
	Unit            string         `json:"unit"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (q *Queries) ListRecentCustomerMeasurements(ctx context.Context, arg ListRecentCustomerMeasurementsParams) ([]ListRecentCustomerMeasurementsRow, error) {
	rows, err := q.db.Query(ctx, listRecentCustomerMeasurements, arg.BusinessID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListRecentCustomerMeasurementsRow{}
	for rows.Next() {
		var i ListRecentCustomerMeasurementsRow
		if err := rows.Scan(
			&i.ID,
			&i.CustomerID,
			&i.CustomerName,
			&i.Gender,
			&i.GarmentType,
			&i.MeasurementType,
			&i.Value,
			&i.Unit,
			&i.CreatedAt,
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

const getMeasurementStatistics = `-- name: GetMeasurementStatistics :one
SELECT
    COUNT(*)::bigint AS total,
    COUNT(DISTINCT customer_id)::bigint AS customers,
    COUNT(*) FILTER (WHERE gender = 'M')::bigint AS men,
    COUNT(*) FILTER (WHERE gender = 'F')::bigint AS women,
    COUNT(*) FILTER (WHERE created_at >= $2)::bigint AS today
FROM customer_measurements
WHERE business_id = $1
`

type GetMeasurementStatisticsParams struct {
	BusinessID uuid.UUID `json:"business_id"`
	Since      time.Time `json:"since"`
}

type GetMeasurementStatisticsRow struct {
	Total     int64 `json:"total"`
	Customers int64 `json:"customers"`
	Men       int64 `json:"men"`
	Women     int64 `json:"women"`
	Today     int64 `json:"today"`
}

func (q *Queries) GetMeasurementStatistics(ctx context.Context, arg GetMeasurementStatisticsParams) (GetMeasurementStatisticsRow, error) {
	row := q.db.QueryRow(ctx, getMeasurementStatistics, arg.BusinessID, arg.Since)
	var i GetMeasurementStatisticsRow
	err := row.Scan(&i.Total, &i.Customers, &i.Men, &i.Women, &i.Today)
	return i, err
}

const countMeasurementsByGarmentType = `-- name: CountMeasurementsByGarmentType :many
SELECT COALESCE(garment_type, 'Unspecified')::text AS garment_type, COUNT(*)::bigint AS count
FROM customer_measurements
WHERE business_id = $1
GROUP BY 1
ORDER BY 2 DESC
`

type CountMeasurementsByGarmentTypeRow struct {
	GarmentType string `json:"garment_type"`
	Count       int64  `json:"count"`
}

func (q *Queries) CountMeasurementsByGarmentType(ctx context.Context, businessID uuid.UUID) ([]CountMeasurementsByGarmentTypeRow, error) {
	rows, err := q.db.Query(ctx, countMeasurementsByGarmentType, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountMeasurementsByGarmentTypeRow{}
	for rows.Next() {
		var i CountMeasurementsByGarmentTypeRow
		if err := rows.Scan(&i.GarmentType, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
