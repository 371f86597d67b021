package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/measure"
	"github.com/silai-boutique/api/internal/middleware"
	"go.uber.org/zap"
)

// GarmentTypeStore defines the database methods needed by the garment catalog.
// Satisfied by *database.Queries; narrow interface for testability.
type GarmentTypeStore interface {
	ListGarmentTypes(ctx context.Context) ([]database.GarmentType, error)
	GetGarmentType(ctx context.Context, id uuid.UUID) (database.GarmentType, error)
	CreateGarmentType(ctx context.Context, name string) (database.GarmentType, error)
	UpdateGarmentType(ctx context.Context, arg database.UpdateGarmentTypeParams) (database.GarmentType, error)
	DeleteGarmentType(ctx context.Context, id uuid.UUID) (int64, error)
	CountGarmentTypeReferences(ctx context.Context, garmentTypeID uuid.UUID) (int64, error)
}

// GarmentTypeHandler serves the shared garment catalog. Reads are open to
// any authenticated user; writes are limited to platform admins.
type GarmentTypeHandler struct {
	store GarmentTypeStore
	log   *zap.Logger
}

// NewGarmentTypeHandler creates a new GarmentTypeHandler.
func NewGarmentTypeHandler(store GarmentTypeStore, log *zap.Logger) *GarmentTypeHandler {
	return &GarmentTypeHandler{store: store, log: log}
}

// RegisterRoutes registers catalog endpoints. Expected to be mounted at /garment-types.
func (h *GarmentTypeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type garmentTypeRequest struct {
	Name string `json:"name"`
}

type garmentTypeResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toGarmentTypeResponse(g database.GarmentType) garmentTypeResponse {
	return garmentTypeResponse{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt}
}

// --- Handlers ---

// List returns the garment catalog sorted by name.
func (h *GarmentTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.ListGarmentTypes(r.Context())
	if err != nil {
		writeInternalError(w, h.log, "list garment types", err)
		return
	}

	resp := make([]garmentTypeResponse, len(types))
	for i, g := range types {
		resp[i] = toGarmentTypeResponse(g)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one garment type.
func (h *GarmentTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "garment type")
	if !ok {
		return
	}

	g, err := h.store.GetGarmentType(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "garment type not found"})
			return
		}
		writeInternalError(w, h.log, "get garment type", err)
		return
	}
	writeJSON(w, http.StatusOK, toGarmentTypeResponse(g))
}

// Create adds a garment type.
func (h *GarmentTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeGarmentName(w, r)
	if !ok {
		return
	}

	g, err := h.store.CreateGarmentType(r.Context(), name)
	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintGarmentName) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "garment type already exists"})
			return
		}
		writeInternalError(w, h.log, "create garment type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGarmentTypeResponse(g))
}

// Update renames a garment type.
func (h *GarmentTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "garment type")
	if !ok {
		return
	}
	name, ok := decodeGarmentName(w, r)
	if !ok {
		return
	}

	g, err := h.store.UpdateGarmentType(r.Context(), database.UpdateGarmentTypeParams{ID: id, Name: name})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "garment type not found"})
			return
		}
		if database.IsUniqueViolation(err, database.ConstraintGarmentName) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "garment type already exists"})
			return
		}
		writeInternalError(w, h.log, "update garment type", err)
		return
	}
	writeJSON(w, http.StatusOK, toGarmentTypeResponse(g))
}

// Delete removes a garment type that no measurement references.
func (h *GarmentTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "garment type")
	if !ok {
		return
	}

	refs, err := h.store.CountGarmentTypeReferences(r.Context(), id)
	if err != nil {
		writeInternalError(w, h.log, "count garment type references", err)
		return
	}
	if refs > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "garment type is used by existing measurements"})
		return
	}

	n, err := h.store.DeleteGarmentType(r.Context(), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "garment type is used by existing measurements"})
			return
		}
		writeInternalError(w, h.log, "delete garment type", err)
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "garment type not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Templates lists the garment measurement templates with their field bounds.
func (h *GarmentTypeHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, measure.Templates())
}

func decodeGarmentName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req garmentTypeRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 50 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required (max 50 characters)"})
		return "", false
	}
	return name, true
}
