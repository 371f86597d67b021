package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/silai-boutique/api/internal/auth"
	"github.com/silai-boutique/api/internal/measure"
	"github.com/silai-boutique/api/internal/middleware"
	"github.com/silai-boutique/api/internal/service"
	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type errorResponse struct {
	Error  string              `json:"error"`
	Field  string              `json:"field,omitempty"`
	Fields []measure.Violation `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeServiceError maps a service error onto a status code. Unclassified
// errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var violations measure.Violations
	if errors.As(err, &violations) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid measurements", Fields: violations})
		return
	}

	var de *service.DomainError
	if errors.As(err, &de) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(de, service.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(de, service.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(de, service.ErrConflict):
			status = http.StatusConflict
		case errors.Is(de, service.ErrForbidden):
			status = http.StatusForbidden
		}
		if status != http.StatusInternalServerError {
			writeJSON(w, status, errorResponse{Error: de.Message, Field: de.Field})
			return
		}
	}

	log.Error(op, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func writeInternalError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	log.Error(op, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// requireClaims returns the caller's claims or writes 401.
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return nil, false
	}
	return claims, true
}

// urlUUID parses a chi URL param, writing 400 "invalid <label> ID" on failure.
func urlUUID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseLimitOffset(r *http.Request) (int32, int32) {
	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	if offset > math.MaxInt32 {
		offset = math.MaxInt32
	}
	return int32(limit), int32(offset)
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// parseDateParam accepts YYYY-MM-DD or RFC3339. Empty yields an invalid
// timestamp. endOfDay moves a bare date to the next midnight.
func parseDateParam(s string, endOfDay bool) (pgtype.Timestamptz, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamptz{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return pgtype.Timestamptz{Time: t, Valid: true}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Timestamptz{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}

// parseDecimal parses a money or measurement value with at most 2 decimal places.
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, errors.New("at most 2 decimal places")
	}
	return d, nil
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
