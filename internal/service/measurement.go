package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/measure"
	"github.com/silai-boutique/api/internal/metrics"
)

var (
	cmPerInch = decimal.RequireFromString("2.54")
	// customer_measurements.value is NUMERIC(5,2).
	maxGenericValue = decimal.RequireFromString("999.99")
)

// MeasurementStore defines the DB methods needed for generic measurements
// and measurement sessions. Satisfied by *database.Queries.
type MeasurementStore interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	GetGarmentType(ctx context.Context, id uuid.UUID) (database.GarmentType, error)

	CreateCustomerMeasurement(ctx context.Context, arg database.CreateCustomerMeasurementParams) (database.CustomerMeasurement, error)
	GetCustomerMeasurement(ctx context.Context, arg database.GetCustomerMeasurementParams) (database.CustomerMeasurement, error)
	UpdateCustomerMeasurement(ctx context.Context, arg database.UpdateCustomerMeasurementParams) (database.CustomerMeasurement, error)
	DeleteCustomerMeasurement(ctx context.Context, arg database.DeleteCustomerMeasurementParams) (int64, error)

	CreateMeasurement(ctx context.Context, arg database.CreateMeasurementParams) (database.Measurement, error)
	GetMeasurement(ctx context.Context, arg database.GetMeasurementParams) (database.Measurement, error)
	ListMeasurementsByCustomer(ctx context.Context, arg database.ListMeasurementsByCustomerParams) ([]database.Measurement, error)
	UpdateMeasurementFabric(ctx context.Context, arg database.UpdateMeasurementFabricParams) (database.Measurement, error)
	SetMeasurementFabricImage(ctx context.Context, arg database.SetMeasurementFabricImageParams) (database.Measurement, error)
	DeleteMeasurement(ctx context.Context, arg database.DeleteMeasurementParams) (int64, error)
	CreateMeasurementValue(ctx context.Context, arg database.CreateMeasurementValueParams) error
	DeleteMeasurementValues(ctx context.Context, measurementID uuid.UUID) error
	ListMeasurementValues(ctx context.Context, measurementID uuid.UUID) ([]database.MeasurementValue, error)
}

// NewMeasurementStore creates a MeasurementStore from a DBTX (pool or tx).
type NewMeasurementStore func(db database.DBTX) MeasurementStore

// GenericMeasurementInput is a single (gender, type, value) reading.
type GenericMeasurementInput struct {
	CustomerID      uuid.UUID       `json:"customer_id"`
	Gender          string          `json:"gender" validate:"required"`
	GarmentType     string          `json:"garment_type" validate:"max=50"`
	MeasurementType string          `json:"measurement_type" validate:"required,max=50"`
	Value           decimal.Decimal `json:"value"`
	Unit            string          `json:"unit"`
}

// SessionInput is a measurement header with its garment field set.
type SessionInput struct {
	CustomerID    uuid.UUID                  `json:"customer_id"`
	GarmentTypeID uuid.UUID                  `json:"garment_type_id"`
	Template      string                     `json:"template" validate:"max=50"`
	FabricColor   string                     `json:"fabric_color" validate:"max=50"`
	FabricImage   string                     `json:"fabric_image" validate:"max=200"`
	EntryDate     *time.Time                 `json:"entry_date"`
	Values        map[string]decimal.Decimal `json:"values"`
}

// Session is a measurement header with its values keyed by field name.
type Session struct {
	database.Measurement
	Values map[string]decimal.Decimal `json:"values"`
}

// MeasurementService validates and stores body measurements.
type MeasurementService struct {
	pool     TxBeginner
	newStore NewMeasurementStore
	store    MeasurementStore
	ranges   *measure.RangeTable
	now      func() time.Time
}

func NewMeasurementService(pool TxBeginner, newStore NewMeasurementStore, store MeasurementStore) *MeasurementService {
	return &MeasurementService{
		pool:     pool,
		newStore: newStore,
		store:    store,
		ranges:   measure.DefaultRanges,
		now:      time.Now,
	}
}

// Ranges returns the range table in use.
func (s *MeasurementService) Ranges() *measure.RangeTable {
	return s.ranges
}

// Validate checks a raw value against the range table. Values in cm are
// converted to inches first. Pairs without bounds pass.
func (s *MeasurementService) Validate(gender, measurementType string, value decimal.Decimal, unit string) measure.Result {
	if strings.EqualFold(strings.TrimSpace(unit), enum.MeasurementUnitCM) {
		value = value.Div(cmPerInch)
	}
	return s.ranges.Validate(gender, measurementType, value)
}

func (s *MeasurementService) checkGeneric(in *GenericMeasurementInput) error {
	in.Gender = measure.NormalizeGender(in.Gender)
	in.GarmentType = strings.TrimSpace(in.GarmentType)
	in.MeasurementType = strings.TrimSpace(in.MeasurementType)
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	if in.Unit == "" {
		in.Unit = enum.MeasurementUnitInches
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Gender != enum.GenderMale && in.Gender != enum.GenderFemale {
		return validationError("gender", "gender must be M or F")
	}
	if in.Unit != enum.MeasurementUnitInches && in.Unit != enum.MeasurementUnitCM {
		return validationError("unit", "unit must be inches or cm")
	}
	if !in.Value.IsPositive() || in.Value.GreaterThan(maxGenericValue) {
		return validationError("value", "value must be greater than 0 and at most 999.99")
	}

	res := s.Validate(in.Gender, in.MeasurementType, in.Value, in.Unit)
	if !res.Valid {
		return validationError("value", res.Message)
	}
	if !res.Known {
		metrics.UnknownMeasurementPairs.WithLabelValues(in.Gender).Inc()
	}
	return nil
}

// CreateGeneric stores a range-checked generic measurement.
func (s *MeasurementService) CreateGeneric(ctx context.Context, businessID uuid.UUID, in GenericMeasurementInput) (database.CustomerMeasurement, error) {
	if err := s.checkGeneric(&in); err != nil {
		return database.CustomerMeasurement{}, err
	}
	if _, err := s.getCustomer(ctx, s.store, businessID, in.CustomerID); err != nil {
		return database.CustomerMeasurement{}, err
	}

	m, err := s.store.CreateCustomerMeasurement(ctx, database.CreateCustomerMeasurementParams{
		BusinessID:      businessID,
		CustomerID:      in.CustomerID,
		Gender:          in.Gender,
		GarmentType:     optionalText(in.GarmentType),
		MeasurementType: in.MeasurementType,
		Value:           decimalToNumeric(in.Value),
		Unit:            in.Unit,
	})
	if err != nil {
		return database.CustomerMeasurement{}, fmt.Errorf("create customer measurement: %w", err)
	}
	return m, nil
}

func (s *MeasurementService) GetGeneric(ctx context.Context, businessID, id uuid.UUID) (database.CustomerMeasurement, error) {
	m, err := s.store.GetCustomerMeasurement(ctx, database.GetCustomerMeasurementParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CustomerMeasurement{}, ErrMeasurementNotFound
		}
		return database.CustomerMeasurement{}, fmt.Errorf("get customer measurement: %w", err)
	}
	return m, nil
}

// UpdateGeneric replaces a generic measurement. The customer cannot change.
func (s *MeasurementService) UpdateGeneric(ctx context.Context, businessID, id uuid.UUID, in GenericMeasurementInput) (database.CustomerMeasurement, error) {
	if err := s.checkGeneric(&in); err != nil {
		return database.CustomerMeasurement{}, err
	}
	m, err := s.store.UpdateCustomerMeasurement(ctx, database.UpdateCustomerMeasurementParams{
		ID:              id,
		BusinessID:      businessID,
		Gender:          in.Gender,
		GarmentType:     optionalText(in.GarmentType),
		MeasurementType: in.MeasurementType,
		Value:           decimalToNumeric(in.Value),
		Unit:            in.Unit,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CustomerMeasurement{}, ErrMeasurementNotFound
		}
		return database.CustomerMeasurement{}, fmt.Errorf("update customer measurement: %w", err)
	}
	return m, nil
}

func (s *MeasurementService) DeleteGeneric(ctx context.Context, businessID, id uuid.UUID) error {
	n, err := s.store.DeleteCustomerMeasurement(ctx, database.DeleteCustomerMeasurementParams{ID: id, BusinessID: businessID})
	if err != nil {
		return fmt.Errorf("delete customer measurement: %w", err)
	}
	if n == 0 {
		return ErrMeasurementNotFound
	}
	return nil
}

// resolveTemplate picks the explicit template or derives one from the
// garment name and the customer's gender. The template must describe the
// header's garment type.
func resolveTemplate(key string, garment database.GarmentType, gender string) (measure.Template, error) {
	if strings.TrimSpace(key) != "" {
		t, ok := measure.LookupTemplate(key)
		if !ok {
			return measure.Template{}, validationError("template", "unknown template "+key)
		}
		if !t.MatchesGarment(garment.Name) {
			return measure.Template{}, validationError("template", fmt.Sprintf("template %s does not describe garment %s", t.Key, garment.Name))
		}
		return t, nil
	}
	t, ok := measure.TemplateFor(garment.Name, gender)
	if !ok {
		return measure.Template{}, validationError("template", fmt.Sprintf("no template for garment %s and gender %q; pass template explicitly", garment.Name, gender))
	}
	return t, nil
}

func checkSessionInput(in *SessionInput) error {
	in.Template = strings.TrimSpace(in.Template)
	in.FabricColor = strings.TrimSpace(in.FabricColor)
	in.FabricImage = strings.TrimSpace(in.FabricImage)
	return validateStruct(in)
}

// CreateSession validates the field set against its template and stores
// the header and values in one transaction.
func (s *MeasurementService) CreateSession(ctx context.Context, businessID uuid.UUID, in SessionInput) (*Session, error) {
	if err := checkSessionInput(&in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	customer, err := s.getCustomer(ctx, store, businessID, in.CustomerID)
	if err != nil {
		return nil, err
	}
	garment, err := store.GetGarmentType(ctx, in.GarmentTypeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGarmentTypeNotFound
		}
		return nil, fmt.Errorf("get garment type: %w", err)
	}
	tpl, err := resolveTemplate(in.Template, garment, customer.Gender)
	if err != nil {
		return nil, err
	}
	values, violations := tpl.Validate(in.Values)
	if len(violations) > 0 {
		return nil, violations
	}

	entryDate := s.now().UTC()
	if in.EntryDate != nil {
		entryDate = in.EntryDate.UTC()
	}
	header, err := store.CreateMeasurement(ctx, database.CreateMeasurementParams{
		BusinessID:    businessID,
		CustomerID:    in.CustomerID,
		GarmentTypeID: in.GarmentTypeID,
		Template:      pgtype.Text{String: tpl.Key, Valid: true},
		FabricImage:   in.FabricImage,
		FabricColor:   in.FabricColor,
		EntryDate:     entryDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create measurement: %w", err)
	}
	if err := insertValues(ctx, store, header.ID, values); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &Session{Measurement: header, Values: values}, nil
}

// UpdateSession replaces the fabric fields and the full value set. The
// garment type and customer of a session are fixed.
func (s *MeasurementService) UpdateSession(ctx context.Context, businessID, id uuid.UUID, in SessionInput) (*Session, error) {
	if err := checkSessionInput(&in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	header, err := store.GetMeasurement(ctx, database.GetMeasurementParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeasurementNotFound
		}
		return nil, fmt.Errorf("get measurement: %w", err)
	}
	customer, err := s.getCustomer(ctx, store, businessID, header.CustomerID)
	if err != nil {
		return nil, err
	}
	garment, err := store.GetGarmentType(ctx, header.GarmentTypeID)
	if err != nil {
		return nil, fmt.Errorf("get garment type: %w", err)
	}
	key := in.Template
	if key == "" {
		key = header.Template.String
	}
	tpl, err := resolveTemplate(key, garment, customer.Gender)
	if err != nil {
		return nil, err
	}
	values, violations := tpl.Validate(in.Values)
	if len(violations) > 0 {
		return nil, violations
	}

	entryDate := header.EntryDate
	if in.EntryDate != nil {
		entryDate = in.EntryDate.UTC()
	}
	updated, err := store.UpdateMeasurementFabric(ctx, database.UpdateMeasurementFabricParams{
		ID:          id,
		BusinessID:  businessID,
		FabricColor: in.FabricColor,
		FabricImage: in.FabricImage,
		EntryDate:   entryDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update measurement: %w", err)
	}
	if err := store.DeleteMeasurementValues(ctx, id); err != nil {
		return nil, fmt.Errorf("delete measurement values: %w", err)
	}
	if err := insertValues(ctx, store, id, values); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &Session{Measurement: updated, Values: values}, nil
}

func (s *MeasurementService) GetSession(ctx context.Context, businessID, id uuid.UUID) (*Session, error) {
	header, err := s.store.GetMeasurement(ctx, database.GetMeasurementParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeasurementNotFound
		}
		return nil, fmt.Errorf("get measurement: %w", err)
	}
	return s.withValues(ctx, header)
}

func (s *MeasurementService) ListSessions(ctx context.Context, businessID, customerID uuid.UUID) ([]*Session, error) {
	if _, err := s.getCustomer(ctx, s.store, businessID, customerID); err != nil {
		return nil, err
	}
	headers, err := s.store.ListMeasurementsByCustomer(ctx, database.ListMeasurementsByCustomerParams{
		CustomerID: customerID,
		BusinessID: businessID,
	})
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	out := make([]*Session, 0, len(headers))
	for _, h := range headers {
		sess, err := s.withValues(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// DeleteSession removes the header; its values cascade. Sessions referenced
// by an order cannot be deleted.
func (s *MeasurementService) DeleteSession(ctx context.Context, businessID, id uuid.UUID) error {
	n, err := s.store.DeleteMeasurement(ctx, database.DeleteMeasurementParams{ID: id, BusinessID: businessID})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrMeasurementInUse
		}
		return fmt.Errorf("delete measurement: %w", err)
	}
	if n == 0 {
		return ErrMeasurementNotFound
	}
	return nil
}

// SetFabricImage records the storage key of an uploaded fabric image.
func (s *MeasurementService) SetFabricImage(ctx context.Context, businessID, id uuid.UUID, key string) (database.Measurement, error) {
	m, err := s.store.SetMeasurementFabricImage(ctx, database.SetMeasurementFabricImageParams{
		ID:          id,
		BusinessID:  businessID,
		FabricImage: key,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Measurement{}, ErrMeasurementNotFound
		}
		return database.Measurement{}, fmt.Errorf("set fabric image: %w", err)
	}
	return m, nil
}

func (s *MeasurementService) withValues(ctx context.Context, header database.Measurement) (*Session, error) {
	rows, err := s.store.ListMeasurementValues(ctx, header.ID)
	if err != nil {
		return nil, fmt.Errorf("list measurement values: %w", err)
	}
	values := make(map[string]decimal.Decimal, len(rows))
	for _, v := range rows {
		values[v.Field] = numericToDecimal(v.Value)
	}
	return &Session{Measurement: header, Values: values}, nil
}

func (s *MeasurementService) getCustomer(ctx context.Context, store MeasurementStore, businessID, id uuid.UUID) (database.Customer, error) {
	c, err := store.GetCustomer(ctx, database.GetCustomerParams{ID: id, BusinessID: businessID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		return database.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func insertValues(ctx context.Context, store MeasurementStore, id uuid.UUID, values map[string]decimal.Decimal) error {
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if err := store.CreateMeasurementValue(ctx, database.CreateMeasurementValueParams{
			MeasurementID: id,
			Field:         f,
			Value:         decimalToNumeric(values[f]),
		}); err != nil {
			return fmt.Errorf("create measurement value %s: %w", f, err)
		}
	}
	return nil
}
