package handlers

import (
	"architect/internal/auth"
	"architect/pkg/validation"
	"errors"
	"net/http"
	"time"
)

type LoginResponse struct {
	Token string `json:"token"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  int64  `json:"user_id"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Register creates a new user account
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.RegisterRequest
	if !h.decodeAuth(w, r, &req, func() error { return h.authValidator.ValidateRegisterRequest(req) }) {
		return
	}

	user, token, err := h.config.Auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.sendServiceError(w, r, err, "Error creating user")
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		Token:   token,
		UserID:  user.ID,
	})
}

// Login authenticates a user and returns a JWT token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest
	if !h.decodeAuth(w, r, &req, func() error { return h.authValidator.ValidateLoginRequest(req) }) {
		return
	}

	token, err := h.config.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.sendError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
			return
		}
		h.sendServiceError(w, r, err, "Error logging in")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// Me returns the account of the caller
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.config.Auth.CurrentUser(r.Context(), ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error retrieving user")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

func (h *Handlers) decodeAuth(w http.ResponseWriter, r *http.Request, dst any, validate func() error) bool {
	if err := decodeBody(w, r, dst); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return false
	}
	if err := validate(); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_input", "Validation failed: "+err.Error())
		return false
	}
	return true
}
