package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/measure"
	"github.com/silai-boutique/api/internal/service"
	"go.uber.org/zap"
)

const maxRecentMeasurements = 50

// MeasurementServicer defines the service methods needed by measurement handlers.
// Satisfied by *service.MeasurementService; narrow interface for testability.
type MeasurementServicer interface {
	Ranges() *measure.RangeTable
	Validate(gender, measurementType string, value decimal.Decimal, unit string) measure.Result
	CreateGeneric(ctx context.Context, businessID uuid.UUID, in service.GenericMeasurementInput) (database.CustomerMeasurement, error)
	GetGeneric(ctx context.Context, businessID, id uuid.UUID) (database.CustomerMeasurement, error)
	UpdateGeneric(ctx context.Context, businessID, id uuid.UUID, in service.GenericMeasurementInput) (database.CustomerMeasurement, error)
	DeleteGeneric(ctx context.Context, businessID, id uuid.UUID) error
}

// MeasurementStore defines the database reads behind measurement listings.
// Satisfied by *database.Queries.
type MeasurementStore interface {
	ListCustomerMeasurements(ctx context.Context, arg database.ListCustomerMeasurementsParams) ([]database.CustomerMeasurement, error)
	ListRecentCustomerMeasurements(ctx context.Context, arg database.ListRecentCustomerMeasurementsParams) ([]database.ListRecentCustomerMeasurementsRow, error)
	GetMeasurementStatistics(ctx context.Context, arg database.GetMeasurementStatisticsParams) (database.GetMeasurementStatisticsRow, error)
	CountMeasurementsByGarmentType(ctx context.Context, businessID uuid.UUID) ([]database.CountMeasurementsByGarmentTypeRow, error)
}

// MeasurementHandler handles generic (gender, type, value) measurements and
// the range table.
type MeasurementHandler struct {
	svc   MeasurementServicer
	store MeasurementStore
	log   *zap.Logger
	now   func() time.Time
}

// NewMeasurementHandler creates a new MeasurementHandler.
func NewMeasurementHandler(svc MeasurementServicer, store MeasurementStore, log *zap.Logger) *MeasurementHandler {
	return &MeasurementHandler{svc: svc, store: store, log: log, now: time.Now}
}

// RegisterRoutes registers measurement endpoints. Expected to be mounted at /measurements.
func (h *MeasurementHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/recent", h.Recent)
	r.Get("/statistics", h.Statistics)
	r.Get("/validate", h.Validate)
	r.Get("/ranges/{gender}", h.Ranges)
	r.Get("/customer/{id}", h.ListByCustomer)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type measurementRequest struct {
	CustomerID      string      `json:"customer_id"`
	Gender          string      `json:"gender"`
	GarmentType     string      `json:"garment_type"`
	MeasurementType string      `json:"measurement_type"`
	Value           json.Number `json:"value"`
	Unit            string      `json:"unit"`
}

type measurementResponse struct {
	ID              uuid.UUID `json:"id"`
	CustomerID      uuid.UUID `json:"customer_id"`
	CustomerName    string    `json:"customer_name,omitempty"`
	Gender          string    `json:"gender"`
	GarmentType     *string   `json:"garment_type"`
	MeasurementType string    `json:"measurement_type"`
	Value           string    `json:"value"`
	Unit            string    `json:"unit"`
	CreatedAt       time.Time `json:"created_at"`
}

type rangesResponse struct {
	Gender  string               `json:"gender"`
	Version string               `json:"version"`
	Ranges  []measure.FieldRange `json:"ranges"`
}

type measurementStatisticsResponse struct {
	Total         int64            `json:"total"`
	Customers     int64            `json:"customers"`
	Men           int64            `json:"men"`
	Women         int64            `json:"women"`
	Today         int64            `json:"today"`
	ByGarmentType map[string]int64 `json:"by_garment_type"`
}

func toMeasurementResponse(m database.CustomerMeasurement) measurementResponse {
	return measurementResponse{
		ID:              m.ID,
		CustomerID:      m.CustomerID,
		Gender:          m.Gender,
		GarmentType:     textPtr(m.GarmentType),
		MeasurementType: m.MeasurementType,
		Value:           numericToString(m.Value),
		Unit:            m.Unit,
		CreatedAt:       m.CreatedAt,
	}
}

// input converts the request, writing 400 on a malformed id or value.
func (req measurementRequest) input(w http.ResponseWriter, needCustomer bool) (service.GenericMeasurementInput, bool) {
	in := service.GenericMeasurementInput{
		Gender:          req.Gender,
		GarmentType:     req.GarmentType,
		MeasurementType: req.MeasurementType,
		Unit:            req.Unit,
	}
	if needCustomer {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return in, false
		}
		in.CustomerID = id
	}
	v, err := parseDecimal(req.Value.String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid value"})
		return in, false
	}
	in.Value = v
	return in, true
}

// --- Handlers ---

// Create stores a range-checked measurement for a customer.
func (h *MeasurementHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req measurementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w, true)
	if !ok {
		return
	}

	m, err := h.svc.CreateGeneric(r.Context(), claims.BusinessID, in)
	if err != nil {
		writeServiceError(w, h.log, "create measurement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMeasurementResponse(m))
}

// Get returns one measurement.
func (h *MeasurementHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}

	m, err := h.svc.GetGeneric(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "get measurement", err)
		return
	}
	writeJSON(w, http.StatusOK, toMeasurementResponse(m))
}

// Update replaces a measurement's reading.
func (h *MeasurementHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}

	var req measurementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w, false)
	if !ok {
		return
	}

	m, err := h.svc.UpdateGeneric(r.Context(), claims.BusinessID, id, in)
	if err != nil {
		writeServiceError(w, h.log, "update measurement", err)
		return
	}
	writeJSON(w, http.StatusOK, toMeasurementResponse(m))
}

// Delete removes a measurement.
func (h *MeasurementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}

	if err := h.svc.DeleteGeneric(r.Context(), claims.BusinessID, id); err != nil {
		writeServiceError(w, h.log, "delete measurement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByCustomer returns a customer's measurements, newest first.
func (h *MeasurementHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	rows, err := h.store.ListCustomerMeasurements(r.Context(), database.ListCustomerMeasurementsParams{
		CustomerID: id,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		writeInternalError(w, h.log, "list customer measurements", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(rows, func(m database.CustomerMeasurement, _ int) measurementResponse {
		return toMeasurementResponse(m)
	}))
}

// Recent returns the latest measurements across all customers (?limit=, max 50).
func (h *MeasurementHandler) Recent(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 10)
	if limit < 1 {
		limit = 10
	}
	if limit > maxRecentMeasurements {
		limit = maxRecentMeasurements
	}

	rows, err := h.store.ListRecentCustomerMeasurements(r.Context(), database.ListRecentCustomerMeasurementsParams{
		BusinessID: claims.BusinessID,
		Limit:      int32(limit),
	})
	if err != nil {
		writeInternalError(w, h.log, "list recent measurements", err)
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(rows, func(row database.ListRecentCustomerMeasurementsRow, _ int) measurementResponse {
		return measurementResponse{
			ID:              row.ID,
			CustomerID:      row.CustomerID,
			CustomerName:    row.CustomerName,
			Gender:          row.Gender,
			GarmentType:     textPtr(row.GarmentType),
			MeasurementType: row.MeasurementType,
			Value:           numericToString(row.Value),
			Unit:            row.Unit,
			CreatedAt:       row.CreatedAt,
		}
	}))
}

// Statistics summarises measurement activity for the business.
func (h *MeasurementHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	now := h.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := h.store.GetMeasurementStatistics(r.Context(), database.GetMeasurementStatisticsParams{
		BusinessID: claims.BusinessID,
		Since:      startOfDay,
	})
	if err != nil {
		writeInternalError(w, h.log, "measurement statistics", err)
		return
	}

	byType, err := h.store.CountMeasurementsByGarmentType(r.Context(), claims.BusinessID)
	if err != nil {
		writeInternalError(w, h.log, "count measurements by garment type", err)
		return
	}

	writeJSON(w, http.StatusOK, measurementStatisticsResponse{
		Total:     stats.Total,
		Customers: stats.Customers,
		Men:       stats.Men,
		Women:     stats.Women,
		Today:     stats.Today,
		ByGarmentType: lo.SliceToMap(byType, func(row database.CountMeasurementsByGarmentTypeRow) (string, int64) {
			return row.GarmentType, row.Count
		}),
	})
}

// Ranges returns the range table for M or F.
func (h *MeasurementHandler) Ranges(w http.ResponseWriter, r *http.Request) {
	gender := measure.NormalizeGender(chi.URLParam(r, "gender"))
	ranges, ok := h.svc.Ranges().Ranges(gender)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "gender must be M or F"})
		return
	}
	writeJSON(w, http.StatusOK, rangesResponse{
		Gender:  gender,
		Version: h.svc.Ranges().Version,
		Ranges:  ranges,
	})
}

// Validate checks ?gender&type&value (type may be passed as measurementType)
// against the range table without storing anything.
func (h *MeasurementHandler) Validate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gender := q.Get("gender")
	measurementType := q.Get("type")
	if measurementType == "" {
		measurementType = q.Get("measurementType")
	}
	if strings.TrimSpace(gender) == "" || strings.TrimSpace(measurementType) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "gender and type are required"})
		return
	}
	value, err := decimal.NewFromString(q.Get("value"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid value"})
		return
	}

	writeJSON(w, http.StatusOK, h.svc.Validate(gender, measurementType, value, q.Get("unit")))
}
