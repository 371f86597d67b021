package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/service"
	"github.com/silai-boutique/api/internal/storage"
	"go.uber.org/zap"
)

const fabricImageURLTTL = 15 * time.Minute

// SessionServicer defines the service methods needed by measurement session
// handlers. Satisfied by *service.MeasurementService.
type SessionServicer interface {
	CreateSession(ctx context.Context, businessID uuid.UUID, in service.SessionInput) (*service.Session, error)
	UpdateSession(ctx context.Context, businessID, id uuid.UUID, in service.SessionInput) (*service.Session, error)
	GetSession(ctx context.Context, businessID, id uuid.UUID) (*service.Session, error)
	ListSessions(ctx context.Context, businessID, customerID uuid.UUID) ([]*service.Session, error)
	DeleteSession(ctx context.Context, businessID, id uuid.UUID) error
	SetFabricImage(ctx context.Context, businessID, id uuid.UUID, key string) (database.Measurement, error)
}

// SessionHandler handles garment measurement sessions and their fabric images.
type SessionHandler struct {
	svc    SessionServicer
	images storage.FabricImageStore
	log    *zap.Logger
}

// NewSessionHandler creates a new SessionHandler. images may be nil, in
// which case the fabric image endpoints answer 503.
func NewSessionHandler(svc SessionServicer, images storage.FabricImageStore, log *zap.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, images: images, log: log}
}

// RegisterRoutes registers session endpoints. Expected to be mounted at /measurement-sessions.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/customer/{id}", h.ListByCustomer)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/fabric-image", h.UploadFabricImage)
	r.Get("/{id}/fabric-image", h.FabricImageURL)
}

// --- Request / Response types ---

type sessionRequest struct {
	CustomerID    string                 `json:"customer_id"`
	GarmentTypeID string                 `json:"garment_type_id"`
	Template      string                 `json:"template"`
	FabricColor   string                 `json:"fabric_color"`
	EntryDate     *time.Time             `json:"entry_date"`
	Values        map[string]json.Number `json:"values"`
}

type sessionResponse struct {
	ID            uuid.UUID         `json:"id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	GarmentTypeID uuid.UUID         `json:"garment_type_id"`
	Template      *string           `json:"template"`
	FabricColor   string            `json:"fabric_color"`
	HasImage      bool              `json:"has_fabric_image"`
	EntryDate     time.Time         `json:"entry_date"`
	Values        map[string]string `json:"values"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type fabricImageResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toSessionResponse(s *service.Session) sessionResponse {
	values := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		values[k] = v.StringFixed(2)
	}
	return sessionResponse{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		GarmentTypeID: s.GarmentTypeID,
		Template:      textPtr(s.Template),
		FabricColor:   s.FabricColor,
		HasImage:      s.FabricImage != "",
		EntryDate:     s.EntryDate,
		Values:        values,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// input converts the request. Customer and garment ids are only read on create.
func (req sessionRequest) input(w http.ResponseWriter, create bool) (service.SessionInput, bool) {
	in := service.SessionInput{
		Template:    req.Template,
		FabricColor: req.FabricColor,
		EntryDate:   req.EntryDate,
		Values:      make(map[string]decimal.Decimal, len(req.Values)),
	}
	if create {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return in, false
		}
		garmentTypeID, err := uuid.Parse(req.GarmentTypeID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid garment_type_id"})
			return in, false
		}
		in.CustomerID = customerID
		in.GarmentTypeID = garmentTypeID
	}
	for k, n := range req.Values {
		d, err := parseDecimal(n.String())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid value for " + k, Field: k})
			return in, false
		}
		in.Values[k] = d
	}
	return in, true
}

// --- Handlers ---

// Create stores a measurement header with its garment field set.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w, true)
	if !ok {
		return
	}

	sess, err := h.svc.CreateSession(r.Context(), claims.BusinessID, in)
	if err != nil {
		writeServiceError(w, h.log, "create measurement session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// Get returns one session with its values.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}

	sess, err := h.svc.GetSession(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "get measurement session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// ListByCustomer returns every session of a customer.
func (h *SessionHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "customer")
	if !ok {
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "list measurement sessions", err)
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toSessionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update replaces the fabric fields and the full value set.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}

	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w, false)
	if !ok {
		return
	}

	sess, err := h.svc.UpdateSession(r.Context(), claims.BusinessID, id, in)
	if err != nil {
		writeServiceError(w, h.log, "update measurement session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// Delete removes a session and its values.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}

	if err := h.svc.DeleteSession(r.Context(), claims.BusinessID, id); err != nil {
		writeServiceError(w, h.log, "delete measurement session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadFabricImage stores a multipart "image" file and records its key on
// the session.
func (h *SessionHandler) UploadFabricImage(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}
	if h.images == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": storage.ErrNotConfigured.Error()})
		return
	}

	if _, err := h.svc.GetSession(r.Context(), claims.BusinessID, id); err != nil {
		writeServiceError(w, h.log, "get measurement session", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+(1<<20))
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image file is required (max 5MB)"})
		return
	}
	defer file.Close()

	if header.Size > storage.MaxImageSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image exceeds 5MB"})
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not read image"})
		return
	}
	contentType := http.DetectContentType(sniff[:n])

	key, err := storage.FabricImageKey(claims.BusinessID, id, contentType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image must be jpeg, png or webp"})
		return
	}

	body := io.MultiReader(bytes.NewReader(sniff[:n]), file)
	if err := h.images.Put(r.Context(), key, body, header.Size, contentType); err != nil {
		writeInternalError(w, h.log, "upload fabric image", err)
		return
	}

	if _, err := h.svc.SetFabricImage(r.Context(), claims.BusinessID, id, key); err != nil {
		writeServiceError(w, h.log, "set fabric image", err)
		return
	}
	h.log.Info("fabric image uploaded",
		zap.String("business_id", claims.BusinessID.String()),
		zap.String("measurement_id", id.String()),
		zap.Int64("size", header.Size),
	)

	h.writeImageURL(w, r, key)
}

// FabricImageURL returns a short-lived download URL for the session's image.
func (h *SessionHandler) FabricImageURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "measurement")
	if !ok {
		return
	}
	if h.images == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": storage.ErrNotConfigured.Error()})
		return
	}

	sess, err := h.svc.GetSession(r.Context(), claims.BusinessID, id)
	if err != nil {
		writeServiceError(w, h.log, "get measurement session", err)
		return
	}
	if sess.FabricImage == "" || !storage.OwnedBy(sess.FabricImage, claims.BusinessID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no fabric image"})
		return
	}

	h.writeImageURL(w, r, sess.FabricImage)
}

func (h *SessionHandler) writeImageURL(w http.ResponseWriter, r *http.Request, key string) {
	url, err := h.images.PresignedURL(r.Context(), key, fabricImageURLTTL)
	if err != nil {
		writeInternalError(w, h.log, "presign fabric image", err)
		return
	}
	writeJSON(w, http.StatusOK, fabricImageResponse{URL: url, ExpiresAt: time.Now().Add(fabricImageURLTTL).UTC()})
}
