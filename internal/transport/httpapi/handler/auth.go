package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/user"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/middleware"
)

// UserServiceInterface defines the interface for user operations needed by AuthHandler
type UserServiceInterface interface {
	Register(ctx context.Context, email, name, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// JWTServiceInterface defines the interface for JWT operations
type JWTServiceInterface interface {
	GenerateToken(userID uuid.UUID, email string) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userService UserServiceInterface
	jwtService  JWTServiceInterface
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService UserServiceInterface, jwtService JWTServiceInterface) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo represents user information (without sensitive data)
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toUserInfo(u *user.User) *UserInfo {
	return &UserInfo{ID: u.ID.String(), Email: u.Email, Name: u.DisplayName()}
}

// Register handles operator registration (POST /auth/register)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		respondError(w, "email is required", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		respondError(w, "password is required", http.StatusBadRequest)
		return
	}

	registered, err := h.userService.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}

	h.respondWithToken(w, registered, http.StatusCreated)
}

// Login handles operator login (POST /auth/login)
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		respondError(w, "email is required", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		respondError(w, "password is required", http.StatusBadRequest)
		return
	}

	authenticated, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}

	h.respondWithToken(w, authenticated, http.StatusOK)
}

// Me returns the signed-in operator (GET /auth/me)
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, toUserInfo(u), http.StatusOK)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, u *user.User, status int) {
	token, err := h.jwtService.GenerateToken(u.ID, u.Email)
	if err != nil {
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, AuthResponse{Token: token, User: toUserInfo(u)}, status)
}
