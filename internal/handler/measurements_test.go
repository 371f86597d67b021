package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/handler"
	"github.com/silai-boutique/api/internal/measure"
	"github.com/silai-boutique/api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMeasurementService uses the real range table and stubs persistence.
type mockMeasurementService struct {
	*service.MeasurementService
	created service.GenericMeasurementInput
	err     error
}

func newMockMeasurementService() *mockMeasurementService {
	return &mockMeasurementService{MeasurementService: service.NewMeasurementService(nil, nil, nil)}
}

func (m *mockMeasurementService) CreateGeneric(_ context.Context, businessID uuid.UUID, in service.GenericMeasurementInput) (database.CustomerMeasurement, error) {
	m.created = in
	if m.err != nil {
		return database.CustomerMeasurement{}, m.err
	}
	return database.CustomerMeasurement{
		ID:              uuid.New(),
		BusinessID:      businessID,
		CustomerID:      in.CustomerID,
		Gender:          in.Gender,
		MeasurementType: in.MeasurementType,
		Value:           makeNumeric(in.Value.String()),
		Unit:            enum.MeasurementUnitInches,
	}, nil
}

func (m *mockMeasurementService) GetGeneric(_ context.Context, _, _ uuid.UUID) (database.CustomerMeasurement, error) {
	return database.CustomerMeasurement{}, service.ErrMeasurementNotFound
}

func (m *mockMeasurementService) UpdateGeneric(_ context.Context, _, id uuid.UUID, in service.GenericMeasurementInput) (database.CustomerMeasurement, error) {
	if m.err != nil {
		return database.CustomerMeasurement{}, m.err
	}
	return database.CustomerMeasurement{ID: id, MeasurementType: in.MeasurementType, Value: makeNumeric(in.Value.String())}, nil
}

func (m *mockMeasurementService) DeleteGeneric(_ context.Context, _, _ uuid.UUID) error {
	return m.err
}

type mockMeasurementStore struct {
	byCustomer []database.CustomerMeasurement
	recent     []database.ListRecentCustomerMeasurementsRow
	stats      database.GetMeasurementStatisticsRow
	byType     []database.CountMeasurementsByGarmentTypeRow
	lastRecent database.ListRecentCustomerMeasurementsParams
	lastStats  database.GetMeasurementStatisticsParams
}

func (m *mockMeasurementStore) ListCustomerMeasurements(_ context.Context, _ database.ListCustomerMeasurementsParams) ([]database.CustomerMeasurement, error) {
	return m.byCustomer, nil
}

func (m *mockMeasurementStore) ListRecentCustomerMeasurements(_ context.Context, arg database.ListRecentCustomerMeasurementsParams) ([]database.ListRecentCustomerMeasurementsRow, error) {
	m.lastRecent = arg
	return m.recent, nil
}

func (m *mockMeasurementStore) GetMeasurementStatistics(_ context.Context, arg database.GetMeasurementStatisticsParams) (database.GetMeasurementStatisticsRow, error) {
	m.lastStats = arg
	return m.stats, nil
}

func (m *mockMeasurementStore) CountMeasurementsByGarmentType(_ context.Context, _ uuid.UUID) ([]database.CountMeasurementsByGarmentTypeRow, error) {
	return m.byType, nil
}

func newMeasurementRouter(svc *mockMeasurementService, store *mockMeasurementStore) http.Handler {
	h := handler.NewMeasurementHandler(svc, store, testLog)
	return mount("/measurements", h.RegisterRoutes)
}

func TestMeasurements_Create(t *testing.T) {
	svc := newMockMeasurementService()
	router := newMeasurementRouter(svc, &mockMeasurementStore{})
	staff := newCaller(t, enum.UserRoleStaff)
	customerID := uuid.New()

	rr := doRequest(t, router, "POST", "/measurements/", staff.token, map[string]interface{}{
		"customer_id":      customerID.String(),
		"gender":           "M",
		"measurement_type": "Chest",
		"value":            40.5,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "40.50", decodeObject(t, rr)["value"])
	assert.Equal(t, customerID, svc.created.CustomerID)
}

func TestMeasurements_CreateBadInput(t *testing.T) {
	router := newMeasurementRouter(newMockMeasurementService(), &mockMeasurementStore{})
	staff := newCaller(t, enum.UserRoleStaff)

	for _, body := range []map[string]interface{}{
		{"customer_id": "nope", "gender": "M", "measurement_type": "Chest", "value": 40},
		{"customer_id": uuid.NewString(), "gender": "M", "measurement_type": "Chest"},
	} {
		rr := doRequest(t, router, "POST", "/measurements/", staff.token, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	}
}

func TestMeasurements_CreateOutOfRange(t *testing.T) {
	svc := newMockMeasurementService()
	svc.err = &service.DomainError{Class: service.ErrValidation, Field: "value", Message: "Chest must be between 34 and 52"}
	router := newMeasurementRouter(svc, &mockMeasurementStore{})
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "POST", "/measurements/", staff.token, map[string]interface{}{
		"customer_id":      uuid.NewString(),
		"gender":           "M",
		"measurement_type": "Chest",
		"value":            60,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "value", decodeObject(t, rr)["field"])
}

func TestMeasurements_GetAndDelete(t *testing.T) {
	svc := newMockMeasurementService()
	router := newMeasurementRouter(svc, &mockMeasurementStore{})
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/measurements/"+uuid.NewString(), staff.token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, router, "DELETE", "/measurements/"+uuid.NewString(), staff.token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMeasurements_Ranges(t *testing.T) {
	router := newMeasurementRouter(newMockMeasurementService(), &mockMeasurementStore{})
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/measurements/ranges/F", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeObject(t, rr)
	assert.Equal(t, "F", resp["gender"])
	assert.Equal(t, measure.DefaultRanges.Version, resp["version"])
	ranges := resp["ranges"].([]interface{})
	assert.Len(t, ranges, 5)
	assert.Equal(t, "Bust", ranges[0].(map[string]interface{})["field"])

	rr = doRequest(t, router, "GET", "/measurements/ranges/X", staff.token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMeasurements_Validate(t *testing.T) {
	router := newMeasurementRouter(newMockMeasurementService(), &mockMeasurementStore{})
	staff := newCaller(t, enum.UserRoleStaff)

	tests := []struct {
		name  string
		query string
		valid bool
		known bool
	}{
		{"in range", "gender=M&type=Chest&value=40", true, true},
		{"above max", "gender=M&type=Chest&value=60", false, true},
		{"cm converted", "gender=M&measurementType=Chest&value=100&unit=cm", true, true},
		{"unknown field passes", "gender=F&type=Inseam&value=500", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "GET", "/measurements/validate?"+tt.query, staff.token, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			resp := decodeObject(t, rr)
			assert.Equal(t, tt.valid, resp["valid"])
			assert.Equal(t, tt.known, resp["known"])
		})
	}

	for _, q := range []string{"type=Chest&value=40", "gender=M&value=40", "gender=M&type=Chest&value=abc"} {
		rr := doRequest(t, router, "GET", "/measurements/validate?"+q, staff.token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestMeasurements_RecentClampsLimit(t *testing.T) {
	store := &mockMeasurementStore{recent: []database.ListRecentCustomerMeasurementsRow{
		{ID: uuid.New(), CustomerName: "Meera", Gender: "F", MeasurementType: "Bust", Value: makeNumeric("34"), Unit: "inches"},
	}}
	router := newMeasurementRouter(newMockMeasurementService(), store)
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/measurements/recent?limit=500", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rows := decodeArray(t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "Meera", rows[0].(map[string]interface{})["customer_name"])
	assert.Equal(t, int32(50), store.lastRecent.Limit)
	assert.Equal(t, staff.businessID, store.lastRecent.BusinessID)
}

func TestMeasurements_Statistics(t *testing.T) {
	store := &mockMeasurementStore{
		stats: database.GetMeasurementStatisticsRow{Total: 12, Customers: 4, Men: 7, Women: 5, Today: 2},
		byType: []database.CountMeasurementsByGarmentTypeRow{
			{GarmentType: "Kurta", Count: 8},
			{GarmentType: "Blouse", Count: 4},
		},
	}
	router := newMeasurementRouter(newMockMeasurementService(), store)
	staff := newCaller(t, enum.UserRoleStaff)

	rr := doRequest(t, router, "GET", "/measurements/statistics", staff.token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeObject(t, rr)
	assert.Equal(t, float64(12), resp["total"])
	assert.Equal(t, float64(2), resp["today"])
	assert.Equal(t, map[string]interface{}{"Kurta": float64(8), "Blouse": float64(4)}, resp["by_garment_type"])

	now := time.Now()
	assert.Equal(t, now.Day(), store.lastStats.Since.Day())
	assert.Zero(t, store.lastStats.Since.Hour())
}
