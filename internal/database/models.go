package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Business struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Gender     string    `json:"gender"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CustomerMeasurement struct {
	ID              uuid.UUID      `json:"id"`
	BusinessID      uuid.UUID      `json:"business_id"`
	CustomerID      uuid.UUID      `json:"customer_id"`
	Gender          string         `json:"gender"`
	GarmentType     pgtype.Text    `json:"garment_type"`
	MeasurementType string         `json:"measurement_type"`
	Value           pgtype.Numeric `json:"value"`
	Unit            string         `json:"unit"`
	CreatedAt       time.Time      `json:"created_at"`
}

type GarmentType struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Measurement struct {
	ID            uuid.UUID   `json:"id"`
	BusinessID    uuid.UUID   `json:"business_id"`
	CustomerID    uuid.UUID   `json:"customer_id"`
	GarmentTypeID uuid.UUID   `json:"garment_type_id"`
	Template      pgtype.Text `json:"template"`
	FabricImage   string      `json:"fabric_image"`
	FabricColor   string      `json:"fabric_color"`
	EntryDate     time.Time   `json:"entry_date"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type MeasurementValue struct {
	MeasurementID uuid.UUID      `json:"measurement_id"`
	Field         string         `json:"field"`
	Value         pgtype.Numeric `json:"value"`
}

type Order struct {
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
}

type OrderStatusHistory struct {
	ID         uuid.UUID   `json:"id"`
	OrderID    uuid.UUID   `json:"order_id"`
	FromStatus pgtype.Text `json:"from_status"`
	ToStatus   string      `json:"to_status"`
	Notes      pgtype.Text `json:"notes"`
	ChangedBy  pgtype.UUID `json:"changed_by"`
	ChangedAt  time.Time   `json:"changed_at"`
}

type Payment struct {
	ID            uuid.UUID      `json:"id"`
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
	CreatedAt     time.Time      `json:"created_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	BusinessID     uuid.UUID `json:"business_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Phone          string    `json:"phone"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
