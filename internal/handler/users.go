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
	"github.com/silai-boutique/api/internal/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsersByBusiness(ctx context.Context, businessID uuid.UUID) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	SoftDeleteUser(ctx context.Context, arg database.SoftDeleteUserParams) (uuid.UUID, error)
}

// UserHandler manages the staff accounts of the caller's business.
type UserHandler struct {
	store UserStore
	log   *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore, log *zap.Logger) *UserHandler {
	return &UserHandler{store: store, log: log}
}

// RegisterRoutes registers user endpoints. Expected to be mounted at /users
// behind RequireRole(OWNER).
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"max=15"`
	Role     string `json:"role" validate:"required,oneof=OWNER MANAGER STAFF"`
}

type updateUserRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"max=15"`
	Role     string `json:"role" validate:"required,oneof=OWNER MANAGER STAFF"`
}

type userDetailResponse struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		ID:         u.ID,
		BusinessID: u.BusinessID,
		Email:      u.Email,
		FullName:   u.FullName,
		Phone:      u.Phone,
		Role:       u.Role,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns all active users of the caller's business.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	users, err := h.store.ListUsersByBusiness(r.Context(), claims.BusinessID)
	if err != nil {
		writeInternalError(w, h.log, "list users", err)
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff account to the caller's business.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := service.ValidateRequest(req); err != nil {
		writeServiceError(w, h.log, "create user", err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternalError(w, h.log, "hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		BusinessID:     claims.BusinessID,
		Email:          req.Email,
		FullName:       req.FullName,
		Phone:          strings.TrimSpace(req.Phone),
		HashedPassword: string(hashed),
		Role:           req.Role,
	})
	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintUserEmail) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already exists"})
			return
		}
		writeInternalError(w, h.log, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// Update changes name, phone and role of a user in the caller's business.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	userID, ok := urlUUID(w, r, "id", "user")
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if err := service.ValidateRequest(req); err != nil {
		writeServiceError(w, h.log, "update user", err)
		return
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:         userID,
		BusinessID: claims.BusinessID,
		FullName:   req.FullName,
		Phone:      strings.TrimSpace(req.Phone),
		Role:       req.Role,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeInternalError(w, h.log, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Delete deactivates a user. Owners cannot deactivate themselves.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	userID, ok := urlUUID(w, r, "id", "user")
	if !ok {
		return
	}
	if userID == claims.UserID {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot deactivate your own account"})
		return
	}

	_, err := h.store.SoftDeleteUser(r.Context(), database.SoftDeleteUserParams{
		ID:         userID,
		BusinessID: claims.BusinessID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeInternalError(w, h.log, "delete user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
