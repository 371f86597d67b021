package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/silai-boutique/api/internal/auth"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// RegisterStore creates a business and its owner inside one transaction.
type RegisterStore interface {
	CreateBusiness(ctx context.Context, name string) (database.Business, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// NewRegisterStore creates a RegisterStore from a DBTX (pool or tx).
type NewRegisterStore func(db database.DBTX) RegisterStore

// TokenConfig holds the signing secret and token lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store    AuthStore
	pool     service.TxBeginner
	newStore NewRegisterStore
	tokens   TokenConfig
	log      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, pool service.TxBeginner, newStore NewRegisterStore, tokens TokenConfig, log *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, pool: pool, newStore: newStore, tokens: tokens, log: log}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type registerRequest struct {
	BusinessName string `json:"business_name"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
}

const minPasswordLength = 8

// --- Handlers ---

// Register creates a business together with its OWNER account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.BusinessName = strings.TrimSpace(req.BusinessName)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	switch {
	case req.BusinessName == "" || len(req.BusinessName) > 150:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "business_name is required (max 150 characters)"})
		return
	case req.FullName == "" || len(req.FullName) > 100:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "full_name is required (max 100 characters)"})
		return
	case req.Email == "" || !strings.Contains(req.Email, "@") || len(req.Email) > 100:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	case len(req.Phone) > 15:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone must be at most 15 characters"})
		return
	case len(req.Password) < minPasswordLength:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternalError(w, h.log, "hash password", err)
		return
	}

	user, err := h.register(r.Context(), req, string(hashed))
	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintUserEmail) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		writeInternalError(w, h.log, "register business", err)
		return
	}

	h.log.Info("business registered", zap.String("business_id", user.BusinessID.String()))
	h.respondWithTokens(w, http.StatusCreated, user)
}

func (h *AuthHandler) register(ctx context.Context, req registerRequest, hashed string) (database.User, error) {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return database.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := h.newStore(tx)
	business, err := store.CreateBusiness(ctx, req.BusinessName)
	if err != nil {
		return database.User{}, fmt.Errorf("create business: %w", err)
	}
	user, err := store.CreateUser(ctx, database.CreateUserParams{
		BusinessID:     business.ID,
		Email:          req.Email,
		FullName:       req.FullName,
		Phone:          strings.TrimSpace(req.Phone),
		HashedPassword: hashed,
		Role:           enum.UserRoleOwner,
	})
	if err != nil {
		return database.User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return database.User{}, fmt.Errorf("commit tx: %w", err)
	}
	return user, nil
}

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeInternalError(w, h.log, "get user by email", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refresh_token is required"})
		return
	}

	userID, err := auth.ValidateRefreshToken(h.tokens.Secret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	// Inactive users are not found, so deactivation revokes refresh.
	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user not found"})
			return
		}
		writeInternalError(w, h.log, "get user by id", err)
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, user database.User) {
	accessToken, err := auth.GenerateToken(h.tokens.Secret, h.tokens.AccessTTL, user.ID, user.BusinessID, user.Role)
	if err != nil {
		writeInternalError(w, h.log, "generate access token", err)
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.tokens.Secret, h.tokens.RefreshTTL, user.ID)
	if err != nil {
		writeInternalError(w, h.log, "generate refresh token", err)
		return
	}

	writeJSON(w, status, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: userResponse{
			ID:         user.ID,
			BusinessID: user.BusinessID,
			FullName:   user.FullName,
			Email:      user.Email,
			Role:       user.Role,
		},
	})
}
